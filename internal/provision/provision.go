// Package provision keeps device accounts and bandwidth profiles in step
// with subscriber and package records.
package provision

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mohit83k/aaabridge/internal/command"
	"github.com/mohit83k/aaabridge/internal/logger"
	"github.com/mohit83k/aaabridge/internal/model"
	"github.com/mohit83k/aaabridge/internal/profile"
	"github.com/mohit83k/aaabridge/internal/routeros"
)

// AuditSink receives every single-subscriber outcome.
type AuditSink interface {
	SaveSyncResult(ctx context.Context, res model.SyncResult) error
}

type Option func(*Synchronizer)

// WithWorkers lets SyncMany run up to n subscribers at once. The default
// of 1 keeps batches strictly sequential.
func WithWorkers(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithSecretGenerator(gen func() (string, error)) Option {
	return func(s *Synchronizer) {
		s.newSecret = gen
	}
}

func WithAudit(a AuditSink) Option {
	return func(s *Synchronizer) {
		s.audit = a
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Synchronizer) {
		s.log = l
	}
}

// Synchronizer applies subscribers to one device.
type Synchronizer struct {
	exec      routeros.Executor
	log       logger.Logger
	audit     AuditSink
	workers   int
	newSecret func() (string, error)
}

func New(exec routeros.Executor, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		exec:    exec,
		log:     logger.Discard(),
		workers: 1,
		newSecret: func() (string, error) {
			return RandomSecret(DefaultSecretLength)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Comment is the annotation stored on the device account so it can be
// traced back to the subscriber record.
func Comment(sub model.Subscriber) string {
	return fmt.Sprintf("Customer: %s (ID: %s)", sub.Name, sub.ID)
}

// SyncOne ensures the package's profile exists and creates or updates the
// subscriber's account. A repeated call for the same subscriber is
// reported as an update.
func (s *Synchronizer) SyncOne(ctx context.Context, sub model.Subscriber, pkg model.Package, service model.ServiceType) model.SyncResult {
	res := s.syncOne(ctx, sub, pkg, service)

	fields := map[string]any{
		"subscriber": sub.ID,
		"username":   res.Username,
		"profile":    res.Profile,
		"service":    string(service),
	}
	if res.Success {
		s.log.WithFields(fields).Info(res.Message)
	} else {
		s.log.WithFields(fields).Error(errors.New(res.Message))
	}
	s.record(ctx, res)
	return res
}

func (s *Synchronizer) syncOne(ctx context.Context, sub model.Subscriber, pkg model.Package, service model.ServiceType) model.SyncResult {
	username := sub.Username()
	res := model.SyncResult{Username: username}
	if !service.Valid() {
		return failed(res, "cannot sync subscriber "+sub.ID, fmt.Errorf("unknown service type %q", service))
	}
	if username == "" {
		return failed(res, "cannot sync subscriber "+sub.ID, errors.New("no login id, phone or email to use as username"))
	}

	bp := profile.Build(pkg, service)
	res.Profile = bp.Name
	if err := s.ensureProfile(ctx, bp); err != nil {
		return failed(res, "failed to ensure profile "+bp.Name, err)
	}

	secret := sub.Secret
	if secret == "" {
		generated, err := s.newSecret()
		if err != nil {
			return failed(res, "failed to generate secret for "+username, err)
		}
		secret = generated
	}

	acct := model.Account{
		Username:    username,
		Secret:      secret,
		Profile:     bp.Name,
		ServiceType: service,
		Disabled:    !sub.Active,
		Comment:     Comment(sub),
	}
	if service == model.ServiceHotspot {
		acct.MACAddress = sub.MACAddress
		acct.IPAddress = sub.IPAddress
	}

	create, err := command.AccountCreate{Account: acct}.Build()
	if err != nil {
		return failed(res, "failed to create account "+username, err)
	}
	_, err = s.exec.Execute(ctx, create)
	switch {
	case err == nil:
		res.Success = true
		res.Created = 1
		res.Message = fmt.Sprintf("account %s created with profile %s", username, bp.Name)
		return res
	case routeros.IsAlreadyExists(err):
		var supplied *string
		if sub.Secret != "" {
			supplied = &sub.Secret
		}
		if err := s.updateAccount(ctx, acct, supplied); err != nil {
			return failed(res, "failed to update account "+username, err)
		}
		res.Success = true
		res.Updated = 1
		res.Message = fmt.Sprintf("account %s updated with profile %s", username, bp.Name)
		return res
	default:
		return failed(res, "failed to create account "+username, err)
	}
}

// ensureProfile creates the profile and treats "already exists" as done.
func (s *Synchronizer) ensureProfile(ctx context.Context, bp model.BandwidthProfile) error {
	cmd, err := command.ProfileCreate{Profile: bp}.Build()
	if err != nil {
		return err
	}
	if _, err := s.exec.Execute(ctx, cmd); err != nil && !routeros.IsAlreadyExists(err) {
		return err
	}
	return nil
}

// updateAccount looks the account up and then sets it. The two steps are
// separate device calls and are not atomic.
func (s *Synchronizer) updateAccount(ctx context.Context, acct model.Account, secret *string) error {
	lookup, err := command.AccountLookup{Service: acct.ServiceType, Username: acct.Username}.Build()
	if err != nil {
		return err
	}
	row, err := routeros.FindOne(ctx, s.exec, lookup)
	if err != nil {
		return err
	}
	update, err := command.AccountUpdate{
		Service:  acct.ServiceType,
		ID:       row.ID(),
		Profile:  acct.Profile,
		Disabled: acct.Disabled,
		Comment:  acct.Comment,
		Secret:   secret,
	}.Build()
	if err != nil {
		return err
	}
	_, err = s.exec.Execute(ctx, update)
	return err
}

func failed(res model.SyncResult, msg string, err error) model.SyncResult {
	res.Success = false
	res.Created = 0
	res.Updated = 0
	res.Message = msg + ": " + err.Error()
	res.Errors = append(res.Errors, err.Error())
	return res
}

func (s *Synchronizer) record(ctx context.Context, res model.SyncResult) {
	if s.audit == nil {
		return
	}
	if err := s.audit.SaveSyncResult(ctx, res); err != nil {
		s.log.WithFields(map[string]any{"username": res.Username}).Error(fmt.Errorf("failed to record sync result: %w", err))
	}
}

// SyncMany syncs every subscriber against its package (matched by name).
// One subscriber's failure never stops the others; a subscriber whose
// package is unknown is counted as failed and skipped.
func (s *Synchronizer) SyncMany(ctx context.Context, subs []model.Subscriber, pkgs []model.Package, service model.ServiceType) model.BatchResult {
	byName := make(map[string]model.Package, len(pkgs))
	for _, p := range pkgs {
		byName[p.Name] = p
	}

	outcomes := make([]model.SubscriberOutcome, len(subs))
	run := func(i int) {
		sub := subs[i]
		pkg, ok := byName[sub.PackageName]
		if !ok {
			res := failed(model.SyncResult{Username: sub.Username()},
				"cannot sync subscriber "+sub.ID,
				fmt.Errorf("package %q not found", sub.PackageName))
			s.record(ctx, res)
			outcomes[i] = model.SubscriberOutcome{SubscriberID: sub.ID, Result: res}
			return
		}
		outcomes[i] = model.SubscriberOutcome{SubscriberID: sub.ID, Result: s.SyncOne(ctx, sub, pkg, service)}
	}

	if s.workers <= 1 {
		for i := range subs {
			run(i)
		}
	} else {
		sem := make(chan struct{}, s.workers)
		var wg sync.WaitGroup
		for i := range subs {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				run(i)
			}(i)
		}
		wg.Wait()
	}

	batch := model.BatchResult{Attempted: len(subs), Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Result.Success {
			batch.Created += o.Result.Created
			batch.Updated += o.Result.Updated
			continue
		}
		batch.Failed++
		batch.Errors = append(batch.Errors, o.SubscriberID+": "+o.Result.Message)
	}

	s.log.WithFields(map[string]any{
		"attempted": batch.Attempted,
		"created":   batch.Created,
		"updated":   batch.Updated,
		"failed":    batch.Failed,
	}).Info("batch sync finished")
	return batch
}

// RemoveAccount deletes the named account from the device.
func (s *Synchronizer) RemoveAccount(ctx context.Context, username string, service model.ServiceType) model.Result {
	lookup, err := command.AccountLookup{Service: service, Username: username}.Build()
	if err != nil {
		return model.Fail("cannot remove account", err)
	}
	return s.remove(ctx, "account "+username, lookup, func(id string) (routeros.Command, error) {
		return command.AccountRemove{Service: service, ID: id}.Build()
	})
}

// RemoveProfile deletes the named bandwidth profile from the device.
func (s *Synchronizer) RemoveProfile(ctx context.Context, name string, service model.ServiceType) model.Result {
	lookup, err := command.ProfileLookup{Service: service, Name: name}.Build()
	if err != nil {
		return model.Fail("cannot remove profile", err)
	}
	return s.remove(ctx, "profile "+name, lookup, func(id string) (routeros.Command, error) {
		return command.ProfileRemove{Service: service, ID: id}.Build()
	})
}

func (s *Synchronizer) remove(ctx context.Context, what string, lookup routeros.Command, build func(id string) (routeros.Command, error)) model.Result {
	row, err := routeros.FindOne(ctx, s.exec, lookup)
	if err != nil {
		if routeros.IsNotFound(err) {
			return model.Fail(what+" not found", err)
		}
		return model.Fail("failed to look up "+what, err)
	}
	cmd, err := build(row.ID())
	if err != nil {
		return model.Fail("failed to remove "+what, err)
	}
	if _, err := s.exec.Execute(ctx, cmd); err != nil {
		return model.Fail("failed to remove "+what, err)
	}
	s.log.WithFields(map[string]any{"id": row.ID()}).Info(what + " removed")
	return model.OK(what+" removed", map[string]string{"id": row.ID()})
}
