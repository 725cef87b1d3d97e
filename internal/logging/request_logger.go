// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logging configures the shared logrus logger and provides gin
// middleware that tags every request with a short request id.
package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// RequestIDKey is the logrus field and gin context key holding the request id.
	RequestIDKey = "request_id"
	// RequestIDHeader carries the request id in and out of the server.
	RequestIDHeader = "X-Request-ID"
)

// RequestLogger assigns a request id (reusing X-Request-ID when the caller sent one),
// stores a request-scoped logrus entry on the context, and logs one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" || len(reqID) > 64 {
			reqID = NewRequestID()
		}
		c.Set(RequestIDKey, reqID)
		c.Header(RequestIDHeader, reqID)

		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			RequestIDKey: reqID,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).Round(time.Microsecond),
		})
		msg := c.Request.Method + " " + c.Request.URL.Path
		switch {
		case c.Writer.Status() >= 500:
			entry.Error(msg)
		case c.Writer.Status() >= 400:
			entry.Warn(msg)
		default:
			entry.Debug(msg)
		}
	}
}

// NewRequestID returns the first eight hex characters of a random UUID.
func NewRequestID() string {
	return uuid.NewString()[:8]
}

// FromContext returns a logrus entry carrying the request id of c, if any.
func FromContext(c *gin.Context) *log.Entry {
	if c != nil {
		if id, ok := c.Get(RequestIDKey); ok {
			if s, okStr := id.(string); okStr {
				return log.WithField(RequestIDKey, s)
			}
		}
	}
	return log.NewEntry(log.StandardLogger())
}
