package main

import (
	"errors"
	"recipes-backend/internal/admin"
	"recipes-backend/internal/components/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCron struct {
	specs     []string
	callbacks []func()
}

func (c *fakeCron) Cron(spec string, callback func()) error {
	c.specs = append(c.specs, spec)
	c.callbacks = append(c.callbacks, callback)
	return nil
}

type fakeStarter struct {
	calls int
	err   error
}

func (s *fakeStarter) Start(siteNames []string, startPage int, languageId int64) (string, []string, error) {
	s.calls++
	if s.err != nil {
		return "", nil, s.err
	}
	return "run", []string{"nosalty"}, nil
}

func TestInitSchedule(t *testing.T) {
	cron := &fakeCron{}
	starter := &fakeStarter{}
	tel := &telemetry.Recorder{}

	err := InitSchedule(cron, "", starter, tel)
	if err != nil {
		t.Fatal(err)
	}
	require.Empty(t, cron.specs)

	err = InitSchedule(cron, "0 3 * * *", starter, tel)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []string{"0 3 * * *"}, cron.specs)

	cron.callbacks[0]()
	require.Equal(t, 1, starter.calls)
	require.Empty(t, tel.Find(telemetry.REPORT_WARNING, report_schedule_skipped))

	starter.err = admin.ErrRunInProgress
	cron.callbacks[0]()
	require.Equal(t, 2, starter.calls)
	require.Len(t, tel.Find(telemetry.REPORT_WARNING, report_schedule_skipped), 1)

	starter.err = errors.New("database is gone")
	cron.callbacks[0]()
	require.Len(t, tel.Find(telemetry.REPORT_BROKEN, report_schedule_start), 1)
}
