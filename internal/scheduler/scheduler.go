package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rozadev/roza/pkg/logger"
)

const maxSleepCap = 60 * time.Second

var (
	ErrInvalidJob  = errors.New("invalid job")
	ErrInvalidCron = errors.New("invalid cron expression")
)

// Scheduler fires jobs from a single goroutine. A job's Run executes on
// that goroutine, so long-running work should hand off.
type Scheduler struct {
	addChan    chan Job
	removeChan chan string
	ctx        context.Context
	log        logger.Logger
	now        func() time.Time
	done       chan struct{}

	// OnRun observes every completed run, including failed and panicked ones.
	OnRun func(name string, err error)
}

// New creates and starts a Scheduler. It exits when ctx is cancelled.
func New(ctx context.Context, l logger.Logger) *Scheduler {
	if l == nil {
		l = logger.NewNopLogger()
	}
	s := &Scheduler{
		addChan:    make(chan Job, 16),
		removeChan: make(chan string, 16),
		ctx:        ctx,
		log:        l,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go s.run()
	return s
}

// Validate checks a job before it is handed to the loop.
func Validate(j Job) error {
	switch {
	case j.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidJob)
	case j.Run == nil:
		return fmt.Errorf("%w: %s has no Run func", ErrInvalidJob, j.Name)
	case (j.Interval > 0) == (j.CronExpr != ""):
		return fmt.Errorf("%w: %s needs exactly one of interval or cron", ErrInvalidJob, j.Name)
	case j.Interval < 0:
		return fmt.Errorf("%w: %s has a negative interval", ErrInvalidJob, j.Name)
	}
	if j.CronExpr != "" && !gronx.New().IsValid(j.CronExpr) {
		return fmt.Errorf("%w: %q", ErrInvalidCron, j.CronExpr)
	}
	return nil
}

// Add validates and enqueues a job. Adding a job with a name already in use
// replaces it.
func (s *Scheduler) Add(j Job) error {
	if err := Validate(j); err != nil {
		return err
	}
	if err := s.ctx.Err(); err != nil {
		return err
	}
	select {
	case s.addChan <- j:
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
	return nil
}

// Remove cancels a job by name.
func (s *Scheduler) Remove(name string) {
	select {
	case s.removeChan <- name:
	case <-s.ctx.Done():
	}
}

// Done is closed when the loop has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) run() {
	defer close(s.done)
	h := &scheduleHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			return nil
		}
		dur := (*h)[0].triggerAt.Sub(s.now())
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-s.ctx.Done():
			return

		case j := <-s.addChan:
			heapRemoveByName(h, j.Name)
			now := s.now()
			if j.RunAtStart {
				heapPush(h, pending{job: j, triggerAt: now})
			} else if next, err := nextRun(j, now); err == nil {
				heapPush(h, pending{job: j, triggerAt: next})
			} else {
				s.log.Error("scheduler: %s: %v", j.Name, err)
			}
			timerCh = resetTimer()

		case name := <-s.removeChan:
			heapRemoveByName(h, name)
			timerCh = resetTimer()

		case <-timerCh:
			now := s.now()
			for h.Len() > 0 && !(*h)[0].triggerAt.After(now) {
				p := heapPop(h)
				s.fire(p.job, now)
				if s.ctx.Err() != nil {
					return
				}
				next, err := nextRun(p.job, s.now())
				if err != nil {
					s.log.Error("scheduler: %s dropped: %v", p.job.Name, err)
					continue
				}
				heapPush(h, pending{job: p.job, triggerAt: next})
			}
			timerCh = resetTimer()
		}
	}
}

// fire runs a job, turning a panic into an error so one bad job cannot stop
// the loop.
func (s *Scheduler) fire(j Job, now time.Time) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return j.Run(s.ctx, now)
	}()
	if err != nil {
		s.log.Error("scheduler: job %s failed: %v", j.Name, err)
	}
	if s.OnRun != nil {
		s.OnRun(j.Name, err)
	}
}

// nextRun returns the first trigger strictly after from.
func nextRun(j Job, from time.Time) (time.Time, error) {
	if j.Interval > 0 {
		return from.Truncate(j.Interval).Add(j.Interval), nil
	}
	return nextCronOccurrence(j.CronExpr, from)
}

// nextCronOccurrence returns the next time the cron expression fires strictly
// after start. Uses gronx.NextTickAfter with inclRefTime=false.
func nextCronOccurrence(expr string, start time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, start, false)
}
