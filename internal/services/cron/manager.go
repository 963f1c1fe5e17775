package cron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"ta3lem-app/internal/platform/jobs"
	"ta3lem-app/internal/services"
	"ta3lem-app/logger"
)

// Manager schedules the settlement sweeps.
type Manager struct {
	cron          *cron.Cron
	db            *gorm.DB
	subscriptions *services.SubscriptionService
	payments      *services.PaymentService
}

func NewManager(db *gorm.DB, subs *services.SubscriptionService, payments *services.PaymentService) *Manager {
	return &Manager{
		cron:          cron.New(),
		db:            db,
		subscriptions: subs,
		payments:      payments,
	}
}

func (m *Manager) Start() error {
	if err := m.registerJobs(); err != nil {
		return err
	}
	m.cron.Start()
	logger.Log.Info("cron jobs started")
	return nil
}

func (m *Manager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	logger.Log.Info("cron jobs stopped")
}

func (m *Manager) registerJobs() error {
	// Hourly: expire lapsed subscriptions and pause their enrollments.
	if _, err := m.cron.AddFunc("0 * * * *", func() {
		m.run("expire_subscriptions", m.expireSubscriptions)
	}); err != nil {
		return err
	}

	// Every 10 minutes: expire overdue unpaid orders.
	if _, err := m.cron.AddFunc("*/10 * * * *", func() {
		m.run("expire_orders", m.expireOrders)
	}); err != nil {
		return err
	}

	return nil
}

// run wraps a job with DB-backed execution logging.
func (m *Manager) run(name string, job func() (string, error)) {
	entry := jobs.JobLog{
		JobName:   name,
		Status:    "running",
		StartedAt: time.Now(),
	}
	m.db.Create(&entry)

	msg, err := job()
	now := time.Now()
	entry.CompletedAt = &now
	if err != nil {
		entry.Status = "failed"
		entry.ErrorMsg = err.Error()
		logger.Log.WithError(err).WithField("job", name).Error("cron job failed")
	} else {
		entry.Status = "completed"
		entry.Message = msg
		logger.Log.WithFields(map[string]interface{}{"job": name, "result": msg}).Info("cron job completed")
	}
	m.db.Save(&entry)
}

func (m *Manager) expireSubscriptions() (string, error) {
	expired, revoked, err := m.subscriptions.CheckAndExpire()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("expired %d subscriptions, paused %d enrollments", expired, revoked), nil
}

func (m *Manager) expireOrders() (string, error) {
	n, err := m.payments.ExpireOverdueOrders()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("expired %d orders", n), nil
}
