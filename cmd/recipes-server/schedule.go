package main

import (
	"errors"
	"recipes-backend/internal/admin"
	"recipes-backend/internal/components/chrono"
	"recipes-backend/internal/components/telemetry"
)

const (
	report_schedule_start   = "run.start"
	report_schedule_skipped = "run.skipped"
)

type runStarter interface {
	Start(siteNames []string, startPage int, languageId int64) (string, []string, error)
}

// InitSchedule starts a run with the configured sites on every tick of
// spec, ticks that land on a running run are skipped.
func InitSchedule(cron chrono.CronAPI, spec string, service runStarter, tel telemetry.API) error {
	if spec == "" {
		return nil
	}
	return cron.Cron(spec, func() {
		startScheduledRun(service, tel)
	})
}

func startScheduledRun(service runStarter, tel telemetry.API) {
	tel = telemetry.NewScopedAPI("schedule", tel)

	id, sites, err := service.Start(nil, 0, 0)
	if errors.Is(err, admin.ErrRunInProgress) {
		tel.ReportWarning(report_schedule_skipped, err)
		return
	}
	if err != nil {
		tel.ReportBroken(report_schedule_start, err)
		return
	}
	tel.ReportDebug("scheduled run started", "run_id", id, "sites", sites)
}
