package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/diagnosis/sai-platform/internal/domain"
	"github.com/diagnosis/sai-platform/internal/repo/memory"
	"github.com/diagnosis/sai-platform/pkg/events"
	"github.com/diagnosis/sai-platform/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contactInput() *domain.ContactInput {
	return &domain.ContactInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@x.com",
		Company:   "Acme",
		Message:   "Hello",
	}
}

func TestBestEffort(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()

	assert.Equal(t, OutcomeOK, BestEffort(ctx, m, "ok", func(context.Context) error { return nil }))
	assert.Equal(t, OutcomeFailed, BestEffort(ctx, m, "fails", func(context.Context) error { return errBoom }))
	assert.Equal(t, OutcomeFailed, BestEffort(ctx, m, "panics", func(context.Context) error { panic("kaboom") }))
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "ok", OutcomeOK.String())
}

func TestSubmitContact_HappyPath(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mail := &fakeMailer{}
	pub := &fakePublisher{}
	svc := NewSubmissionService(store, mail, pub, metrics.New())

	require.NoError(t, svc.SubmitContact(ctx, contactInput()))

	list, err := svc.ListContacts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "jane@x.com", list[0].Email)

	assert.Equal(t, [][]string{{"sales@saiplatform.com"}, {"jane@x.com"}}, mail.sentTo())
	assert.Equal(t, []string{events.ContactReceived}, pub.subjects)
}

func TestSubmitContact_SideEffectsFailing(t *testing.T) {
	ctx := context.Background()
	svc := NewSubmissionService(brokenStore{memory.New()}, &fakeMailer{fail: true}, &fakePublisher{fail: true}, metrics.New())

	assert.NoError(t, svc.SubmitContact(ctx, contactInput()))
}

func TestSubmitContact_Invalid(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mail := &fakeMailer{}
	svc := NewSubmissionService(store, mail, nil, nil)

	in := contactInput()
	in.Email = "not-an-email"
	err := svc.SubmitContact(ctx, in)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Errors[0].Field)

	list, _ := store.ListContactSubmissions(ctx)
	assert.Empty(t, list)
	assert.Empty(t, mail.sentTo())
}

func TestSubscribe_Duplicate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mail := &fakeMailer{}
	svc := NewSubmissionService(store, mail, nil, nil)

	require.NoError(t, svc.Subscribe(ctx, &domain.NewsletterInput{Email: "a@b.com"}))
	err := svc.Subscribe(ctx, &domain.NewsletterInput{Email: " A@b.com "})
	assert.True(t, errors.Is(err, ErrAlreadySubscribed))

	list, err := svc.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Len(t, mail.sentTo(), 1, "only the first call sends a welcome email")
}

func TestSubscribe_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewSubmissionService(store, &fakeMailer{}, nil, nil)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		dups int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Subscribe(ctx, &domain.NewsletterInput{Email: "race@x.com"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				oks++
			} else if errors.Is(err, ErrAlreadySubscribed) {
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
	assert.Equal(t, 9, dups)
	list, _ := store.ListNewsletterSubscriptions(ctx)
	assert.Len(t, list, 1)
}

func TestSubscribe_LookupFailureTreatedAsNew(t *testing.T) {
	ctx := context.Background()
	mail := &fakeMailer{}
	svc := NewSubmissionService(brokenStore{memory.New()}, mail, nil, nil)

	assert.NoError(t, svc.Subscribe(ctx, &domain.NewsletterInput{Email: "a@b.com"}))
	assert.Len(t, mail.sentTo(), 1)
}

func TestSubmitRequest(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mail := &fakeMailer{}
	pub := &fakePublisher{}
	svc := NewSubmissionService(store, mail, pub, nil)

	err := svc.SubmitRequest(ctx, &domain.RequestInput{
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        "jane@x.com",
		Company:      "Acme",
		Challenges:   []string{" scaling ", ""},
		RequestTypes: domain.TagList{"demo"},
	})
	require.NoError(t, err)

	list, err := svc.ListRequests(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"scaling"}, list[0].Challenges)
	assert.Equal(t, []string{"demo"}, list[0].RequestTypes)
	assert.Len(t, mail.sentTo(), 2)
	assert.Equal(t, []string{events.RequestReceived}, pub.subjects)
}

func TestSubmitRequest_MissingTypes(t *testing.T) {
	svc := NewSubmissionService(memory.New(), &fakeMailer{}, nil, nil)
	err := svc.SubmitRequest(context.Background(), &domain.RequestInput{
		FirstName: "Jane", LastName: "Doe", Email: "jane@x.com", Company: "Acme",
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
}

func cancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestSubmitContact_OutlivesCancelledRequest(t *testing.T) {
	store := ctxStore{memory.New()}
	mail := &fakeMailer{}
	pub := &fakePublisher{}
	m := metrics.New()
	svc := NewSubmissionService(store, mail, pub, m)

	require.NoError(t, svc.SubmitContact(cancelledContext(), contactInput()))

	list, err := store.ListContactSubmissions(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, [][]string{{"sales@saiplatform.com"}, {"jane@x.com"}}, mail.sentTo())
	assert.Equal(t, []string{events.ContactReceived}, pub.subjects)
}

func TestSubscribe_OutlivesCancelledRequest(t *testing.T) {
	store := ctxStore{memory.New()}
	mail := &fakeMailer{}
	svc := NewSubmissionService(store, mail, nil, nil)

	require.NoError(t, svc.Subscribe(cancelledContext(), &domain.NewsletterInput{Email: "a@b.com"}))

	list, err := store.ListNewsletterSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, [][]string{{"a@b.com"}}, mail.sentTo())
}

func TestSubmitRequest_OutlivesCancelledRequest(t *testing.T) {
	store := ctxStore{memory.New()}
	mail := &fakeMailer{}
	svc := NewSubmissionService(store, mail, nil, nil)

	err := svc.SubmitRequest(cancelledContext(), &domain.RequestInput{
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        "jane@x.com",
		Company:      "Acme",
		RequestTypes: domain.TagList{"demo"},
	})
	require.NoError(t, err)

	list, err := store.ListRequests(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Len(t, mail.sentTo(), 2)
}
