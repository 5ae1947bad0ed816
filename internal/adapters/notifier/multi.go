// Package notifier объединяет несколько каналов уведомлений в один.
package notifier

import (
	"context"
	"errors"

	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port"
)

// Multi рассылает событие всем уведомителям
type Multi struct {
	notifiers []port.NotifierPort
}

func NewMulti(notifiers ...port.NotifierPort) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

func (m *Multi) Len() int { return len(m.notifiers) }

func (m *Multi) Notify(ctx context.Context, event domain.TaskEvent) {
	for _, n := range m.notifiers {
		n.Notify(ctx, event)
	}
}

// MultiReportPublisher публикует отчёт во все каналы; ошибки собираются вместе
type MultiReportPublisher struct {
	publishers []port.IngestionReportPublisherPort
}

func NewMultiReportPublisher(publishers ...port.IngestionReportPublisherPort) *MultiReportPublisher {
	m := &MultiReportPublisher{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

func (m *MultiReportPublisher) Len() int { return len(m.publishers) }

func (m *MultiReportPublisher) PublishReport(ctx context.Context, report *domain.IngestionReport) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.PublishReport(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
