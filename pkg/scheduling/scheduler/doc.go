// Package scheduler submits tasks to a worker pool when they become due.
//
// A tick loop wakes every TickInterval, collects due tasks under a lock and
// submits them to the pool outside it. Because the pool's queue is a bounded
// channel, a burst of due tasks is throttled by the pool rather than buffered
// without limit.
//
// Basic Usage:
//
//	s, err := scheduler.New()
//	if err != nil {
//		return err
//	}
//	if err := s.Start(); err != nil {
//		return err
//	}
//	defer func() { <-s.Stop() }()
//
//	task := workerpool.TaskFunc(func(ctx context.Context) error {
//		fmt.Println("Task executed!")
//		return nil
//	})
//
//	s.Schedule("once", task, time.Now().Add(time.Second))
//	s.ScheduleAfter("later", task, 5*time.Minute)
//	s.ScheduleRepeating("heartbeat", task, 30*time.Second)
//
// Cron Expressions:
//
// ScheduleCron uses robfig/cron with a leading seconds field, plus the
// descriptors @yearly, @monthly, @weekly, @daily, @hourly and @every:
//
//	s.ScheduleCron("audit", "*/10 * * * * *", auditTask) // every 10 seconds
//	s.ScheduleCron("report", "0 0 9 * * MON-FRI", task)   // weekdays at 9:00
//	s.ScheduleCron("sweep", "@every 1m", task)
//
// Expressions are evaluated in Config.Location (time.Local by default).
// ValidateCron checks an expression without scheduling anything.
//
// Pools:
//
// Config.WorkerPool supplies the pool that runs due tasks. When it is nil the
// scheduler creates a private pool and shuts it down on Stop; a supplied pool
// is left running.
//
// Submit failures (for example a pool that has been shut down) are logged
// through Config.Logger and the task stays scheduled if it repeats.
package scheduler
