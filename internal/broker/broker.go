// Package broker is the background message hub between the watch loop and the
// backend. It owns the delivery client and the persisted counters, and exposes
// the same request vocabulary the page-side monitor speaks: deliver a record,
// report a sync outcome, read or update settings.
package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"leetsync/internal/config"
	"leetsync/internal/deliver"
	"leetsync/internal/extract"
	"leetsync/internal/store"
)

// Action discriminates broker requests.
type Action string

const (
	ActionDeliver        Action = "send_to_backend"
	ActionSyncSuccess    Action = "sync_success"
	ActionSyncError      Action = "sync_error"
	ActionGetSettings    Action = "get_settings"
	ActionUpdateSettings Action = "update_settings"
)

// Request is one message to the broker.
type Request struct {
	Action   Action
	Record   *extract.SubmissionRecord
	Token    string
	Error    string
	Settings *config.Config
}

// Response is the broker's answer; exactly one of the outcome fields applies.
type Response struct {
	Success  bool
	Error    string
	Settings *config.Config
	Payload  map[string]any
}

// Broker dispatches requests.
type Broker struct {
	client  *deliver.Client
	state   *store.Store
	cfgPath string
	log     *zap.Logger
}

// New creates a broker.
func New(client *deliver.Client, state *store.Store, cfgPath string, log *zap.Logger) *Broker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broker{client: client, state: state, cfgPath: cfgPath, log: log}
}

// Handle dispatches a request. Unknown actions return an error response, never
// a panic; handler errors are converted into the response so callers only deal
// with the Response shape.
func (b *Broker) Handle(ctx context.Context, req Request) Response {
	switch req.Action {
	case ActionDeliver:
		payload, err := b.client.Deliver(ctx, req.Record, req.Token)
		if err != nil {
			b.notify("Sync Error", fmt.Sprintf("Failed to sync: %s", err))
			return Response{Error: err.Error()}
		}
		b.notify("Sync Successful",
			fmt.Sprintf("Problem %q synced to your AI tutor!", req.Record.ProblemTitle))
		return Response{Success: true, Payload: payload}

	case ActionSyncSuccess:
		if req.Record == nil {
			return Response{Error: "sync_success requires a record"}
		}
		if _, err := b.state.MarkSynced(req.Record.Slug, req.Record.ProblemTitle, req.Record.Language, time.Now()); err != nil {
			return Response{Error: err.Error()}
		}
		b.notify("Sync Successful",
			fmt.Sprintf("Problem %q synced to your AI tutor!", req.Record.ProblemTitle))
		return Response{Success: true}

	case ActionSyncError:
		if err := b.state.SetStatus(store.StatusError); err != nil {
			return Response{Error: err.Error()}
		}
		b.notify("Sync Error", fmt.Sprintf("Failed to sync: %s", req.Error))
		return Response{Success: true}

	case ActionGetSettings:
		cfg, err := config.Load(b.cfgPath)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{Success: true, Settings: cfg}

	case ActionUpdateSettings:
		if req.Settings == nil {
			return Response{Error: "update_settings requires settings"}
		}
		if err := req.Settings.Save(b.cfgPath); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{Success: true}

	default:
		b.log.Warn("unknown broker action", zap.String("action", string(req.Action)))
		return Response{Error: "unknown action"}
	}
}

// DeliverRecord reads the stored credential and runs a delivery. This is the
// monitor's single entry point into the broker.
func (b *Broker) DeliverRecord(ctx context.Context, rec *extract.SubmissionRecord) error {
	token, err := b.state.Get(store.KeyAuthToken)
	if err != nil {
		return err
	}
	if token == "" {
		if err := b.state.SetStatus(store.StatusError); err != nil {
			b.log.Warn("status update failed", zap.Error(err))
		}
		return deliver.ErrMissingCredential
	}

	resp := b.Handle(ctx, Request{Action: ActionDeliver, Record: rec, Token: token})
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}

// notify surfaces a user-facing event in the log stream.
func (b *Broker) notify(title, message string) {
	b.log.Info("notification", zap.String("title", title), zap.String("message", message))
}
