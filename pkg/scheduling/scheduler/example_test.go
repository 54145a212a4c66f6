package scheduler_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vnykmshr/boundchan/pkg/scheduling/scheduler"
	"github.com/vnykmshr/boundchan/pkg/scheduling/workerpool"
)

func Example() {
	s, err := scheduler.New()
	if err != nil {
		log.Fatal(err)
	}
	if err := s.Start(); err != nil {
		log.Fatal(err)
	}

	ran := make(chan struct{})
	task := workerpool.TaskFunc(func(_ context.Context) error {
		fmt.Println("Task executed")
		close(ran)
		return nil
	})

	_ = s.ScheduleAfter("simple-task", task, 10*time.Millisecond)

	<-ran
	<-s.Stop()
	// Output: Task executed
}

func ExampleScheduler_cron() {
	s, err := scheduler.New()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { <-s.Stop() }()

	task := workerpool.TaskFunc(func(_ context.Context) error { return nil })

	// Six fields: seconds come first.
	if err := s.ScheduleCron("backup", "0 30 2 * * *", task); err != nil {
		log.Fatal(err)
	}
	if err := s.ScheduleCron("audit", "@every 1m", task); err != nil {
		log.Fatal(err)
	}

	for _, t := range s.List() {
		fmt.Println(t.ID, t.Cron)
	}
	// Unordered output:
	// backup 0 30 2 * * *
	// audit @every 1m
}
