package obd

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"cardiag/internal/models"
	"cardiag/pkg/log"
)

// ErrMonitorRunning is returned when a second monitor is requested.
var ErrMonitorRunning = errors.New("obd: monitor already running")

// StartMonitoring polls the given PIDs on the interval, delivering each
// batch to fn from a dedicated worker. The worker takes the connector
// lock per poll, so ad hoc commands and the monitor never interleave on
// the link. Only one monitor may run at a time.
func (c *Connector) StartMonitoring(interval time.Duration, pids []string, fn func([]models.SensorReading)) error {
	c.mu.Lock()
	if c.state != StateVehicleConnected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if c.monitorStop != nil {
		c.mu.Unlock()
		return ErrMonitorRunning
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	c.monitorStop = stop
	c.monitorDone = done
	c.mu.Unlock()

	log.Info("monitor started", zap.Duration("interval", interval), zap.Int("pids", len(pids)))
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.mu.Lock()
				readings := c.readSensors(pids)
				c.mu.Unlock()
				if len(readings) > 0 {
					fn(readings)
				}
			}
		}
	}()
	return nil
}

// StopMonitoring signals the poll worker and joins it before returning.
// Safe to call when no monitor is running.
func (c *Connector) StopMonitoring() {
	c.mu.Lock()
	stop, done := c.monitorStop, c.monitorDone
	c.monitorStop, c.monitorDone = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	log.Info("monitor stopped")
}
