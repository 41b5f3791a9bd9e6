package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor periodically sweeps abandoned and finished sessions.
type Janitor struct {
	cron      *cron.Cron
	spec      string
	sweepFunc func()
}

func NewJanitor(spec string, sweepFunc func()) *Janitor {
	return &Janitor{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		spec:      spec,
		sweepFunc: sweepFunc,
	}
}

func (j *Janitor) Start() error {
	if j.sweepFunc == nil {
		log.Println("⚠️ Sweep function not set, janitor will not run")
		return nil
	}

	_, err := j.cron.AddFunc(j.spec, j.sweepFunc)
	if err != nil {
		return err
	}

	j.cron.Start()
	log.Printf("📅 Session janitor started (%s)", j.spec)
	return nil
}

func (j *Janitor) Stop() {
	if j.cron != nil {
		ctx := j.cron.Stop()
		<-ctx.Done()
	}
	log.Println("📅 Session janitor stopped")
}
