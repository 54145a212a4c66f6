// Package scheduling groups the task execution primitives built on the
// bounded channel:
//
//   - workerpool: fixed set of workers fed by a channel.Channel task queue
//   - scheduler: time and cron based submission into a worker pool
//
// Worker Pool:
//
//	pool, err := workerpool.New(4, 100) // 4 workers, queue size 100
//	if err != nil {
//		return err
//	}
//	defer func() { <-pool.Shutdown() }()
//
//	pool.Submit(workerpool.TaskFunc(func(ctx context.Context) error {
//		return nil
//	}))
//
// Task Scheduler:
//
//	s, err := scheduler.NewWithConfig(scheduler.Config{WorkerPool: pool})
//	if err != nil {
//		return err
//	}
//	s.Start()
//	defer func() { <-s.Stop() }()
//
//	s.ScheduleRepeating("heartbeat", task, time.Second)
//	s.ScheduleCron("audit", "*/10 * * * * *", auditTask)
package scheduling
