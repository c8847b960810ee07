// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// WatermillAdapter routes watermill's internal logging into zerolog.
type WatermillAdapter struct {
	logger zerolog.Logger
	fields watermill.LogFields
}

// NewWatermillAdapter tags every entry with component=eventbus.
func NewWatermillAdapter() *WatermillAdapter {
	return &WatermillAdapter{logger: WithComponent("eventbus")}
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.emit(a.logger.Error().Err(err), msg, fields)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.emit(a.logger.Info(), msg, fields)
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.emit(a.logger.Debug(), msg, fields)
}

func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.emit(a.logger.Trace(), msg, fields)
}

func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{logger: a.logger, fields: a.fields.Add(fields)}
}

func (a *WatermillAdapter) emit(event *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range a.fields {
		event = event.Interface(k, v)
	}
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}
