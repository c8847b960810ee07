// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

// Package audit implements the admin activity trail: the record model, the
// request classifier, the storage backends and the asynchronous writer that
// keeps persistence off the request path.
package audit

import (
	"strconv"
	"strings"
	"time"
)

// Action values written by the classifier and the auth handlers. Any other
// HTTP method is recorded verbatim.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionExport = "EXPORT"
	ActionLogin  = "LOGIN"
	ActionLogout = "LOGOUT"
)

// Severity is an ordered level. The zero value is treated as INFO.
type Severity string

const (
	SeverityDebug     Severity = "DEBUG"
	SeverityInfo      Severity = "INFO"
	SeverityNotice    Severity = "NOTICE"
	SeverityWarning   Severity = "WARNING"
	SeverityError     Severity = "ERROR"
	SeverityCritical  Severity = "CRITICAL"
	SeverityAlert     Severity = "ALERT"
	SeverityEmergency Severity = "EMERGENCY"
)

var severityOrder = []Severity{
	SeverityDebug,
	SeverityInfo,
	SeverityNotice,
	SeverityWarning,
	SeverityError,
	SeverityCritical,
	SeverityAlert,
	SeverityEmergency,
}

// ParseSeverity is case-insensitive; anything unrecognized becomes INFO.
func ParseSeverity(s string) Severity {
	up := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if up.Valid() {
		return up
	}
	return SeverityInfo
}

func (s Severity) Valid() bool {
	for _, v := range severityOrder {
		if s == v {
			return true
		}
	}
	return false
}

// Rank orders severities from 0 (DEBUG) upward.
func (s Severity) Rank() int {
	for i, v := range severityOrder {
		if s == v {
			return i
		}
	}
	return 1
}

// DetailsKind discriminates the Details union.
type DetailsKind string

const (
	DetailsHTTP DetailsKind = "http"
	DetailsText DetailsKind = "text"
)

// Details is a tagged union. For DetailsHTTP the Query, Body, StatusCode and
// StatusMessage fields are set; for DetailsText only Text is.
type Details struct {
	Kind          DetailsKind            `json:"kind" bson:"kind"`
	Query         map[string]string      `json:"query,omitempty" bson:"query,omitempty"`
	Body          map[string]interface{} `json:"body,omitempty" bson:"body,omitempty"`
	StatusCode    int                    `json:"statusCode,omitempty" bson:"statusCode,omitempty"`
	StatusMessage string                 `json:"statusMessage,omitempty" bson:"statusMessage,omitempty"`
	Text          string                 `json:"text,omitempty" bson:"text,omitempty"`
}

func NewHTTPDetails(query map[string]string, body map[string]interface{}, status int, message string) *Details {
	return &Details{
		Kind:          DetailsHTTP,
		Query:         query,
		Body:          body,
		StatusCode:    status,
		StatusMessage: message,
	}
}

func NewTextDetails(text string) *Details {
	return &Details{Kind: DetailsText, Text: text}
}

// Summary renders the details as a single line for tabular exports.
func (d *Details) Summary() string {
	if d == nil {
		return ""
	}
	switch d.Kind {
	case DetailsText:
		return d.Text
	case DetailsHTTP:
		if d.StatusCode == 0 {
			return d.StatusMessage
		}
		return strings.TrimSpace(strconv.Itoa(d.StatusCode) + " " + d.StatusMessage)
	default:
		return ""
	}
}

// Record is one administrative action. Actor fields are captured at write
// time so later profile changes do not rewrite history. Only Timestamp is
// guaranteed to be set.
type Record struct {
	ID         string    `json:"id" bson:"_id"`
	ActorID    string    `json:"actorId,omitempty" bson:"actorId,omitempty"`
	ActorName  string    `json:"actorName,omitempty" bson:"actorName,omitempty"`
	ActorEmail string    `json:"actorEmail,omitempty" bson:"actorEmail,omitempty"`
	ActorRole  string    `json:"actorRole,omitempty" bson:"actorRole,omitempty"`
	Action     string    `json:"action,omitempty" bson:"action,omitempty"`
	Entity     string    `json:"entity,omitempty" bson:"entity,omitempty"`
	EntityID   string    `json:"entityId,omitempty" bson:"entityId,omitempty"`
	Severity   Severity  `json:"severity" bson:"severity"`
	Details    *Details  `json:"details,omitempty" bson:"details,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

// Row flattens the record into the nested map shape consumed by the export
// package, e.g. "details.statusCode".
func (r *Record) Row() map[string]interface{} {
	row := map[string]interface{}{
		"id":         r.ID,
		"actorId":    r.ActorID,
		"actorName":  r.ActorName,
		"actorEmail": r.ActorEmail,
		"actorRole":  r.ActorRole,
		"action":     r.Action,
		"entity":     r.Entity,
		"entityId":   r.EntityID,
		"severity":   string(r.Severity),
		"ipAddress":  r.IPAddress,
		"userAgent":  r.UserAgent,
		"timestamp":  r.Timestamp,
	}
	if r.Details != nil {
		d := map[string]interface{}{
			"kind":    string(r.Details.Kind),
			"summary": r.Details.Summary(),
		}
		if r.Details.StatusCode != 0 {
			d["statusCode"] = r.Details.StatusCode
		}
		if r.Details.Text != "" {
			d["text"] = r.Details.Text
		}
		row["details"] = d
	}
	return row
}
