package postgres

import (
	"context"

	"github.com/diagnosis/sai-platform/internal/domain"
	"github.com/diagnosis/sai-platform/internal/repo"
	"github.com/jackc/pgx/v5"
)

const contactColumns = `id, first_name, last_name, email, company, phone, company_size, message, privacy_consent, submitted_at`

func scanContact(row pgx.Row) (*domain.ContactSubmission, error) {
	var c domain.ContactSubmission
	if err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Company, &c.Phone,
		&c.CompanySize, &c.Message, &c.PrivacyConsent, &c.SubmittedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) CreateContactSubmission(ctx context.Context, in *domain.ContactInput) (*domain.ContactSubmission, error) {
	const q = `
INSERT INTO contact_submissions (first_name, last_name, email, company, phone, company_size, message, privacy_consent)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING ` + contactColumns
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanContact(s.pool.QueryRow(ctx, q,
		in.FirstName, in.LastName, in.Email, in.Company, in.Phone, in.CompanySize, in.Message, bool(in.PrivacyConsent),
	))
}

func (s *Store) ListContactSubmissions(ctx context.Context) ([]domain.ContactSubmission, error) {
	const q = `SELECT ` + contactColumns + ` FROM contact_submissions ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []domain.ContactSubmission{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) CreateNewsletterSubscription(ctx context.Context, email string) (*domain.NewsletterSubscription, error) {
	const q = `INSERT INTO newsletter_subscriptions (email) VALUES ($1) RETURNING id, email, subscribed_at`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n domain.NewsletterSubscription
	if err := s.pool.QueryRow(ctx, q, email).Scan(&n.ID, &n.Email, &n.SubscribedAt); err != nil {
		return nil, mapErr(err)
	}
	return &n, nil
}

func (s *Store) GetNewsletterSubscriptionByEmail(ctx context.Context, email string) (*domain.NewsletterSubscription, error) {
	const q = `SELECT id, email, subscribed_at FROM newsletter_subscriptions WHERE lower(email)=lower($1)`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n domain.NewsletterSubscription
	if err := s.pool.QueryRow(ctx, q, email).Scan(&n.ID, &n.Email, &n.SubscribedAt); err != nil {
		return nil, mapErr(err)
	}
	return &n, nil
}

func (s *Store) ListNewsletterSubscriptions(ctx context.Context) ([]domain.NewsletterSubscription, error) {
	const q = `SELECT id, email, subscribed_at FROM newsletter_subscriptions ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []domain.NewsletterSubscription{}
	for rows.Next() {
		var n domain.NewsletterSubscription
		if err := rows.Scan(&n.ID, &n.Email, &n.SubscribedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

const requestColumns = `id, first_name, last_name, email, phone, company, job_title,
industry, company_size, challenges, timeline, budget,
request_types, focus_areas, additional_requirements, preferred_date, submitted_at`

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var (
		r                                    domain.Request
		challenges, requestTypes, focusAreas string
	)
	if err := row.Scan(
		&r.ID, &r.FirstName, &r.LastName, &r.Email, &r.Phone, &r.Company, &r.JobTitle,
		&r.Industry, &r.CompanySize, &challenges, &r.Timeline, &r.Budget,
		&requestTypes, &focusAreas, &r.AdditionalRequirements, &r.PreferredDate, &r.SubmittedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	var err error
	if r.Challenges, err = repo.DecodeList(challenges); err != nil {
		return nil, err
	}
	if r.FocusAreas, err = repo.DecodeList(focusAreas); err != nil {
		return nil, err
	}
	r.RequestTypes = repo.SplitTags(requestTypes)
	return &r, nil
}

func (s *Store) CreateRequest(ctx context.Context, in *domain.RequestInput) (*domain.Request, error) {
	const q = `
INSERT INTO requests (first_name, last_name, email, phone, company, job_title,
    industry, company_size, challenges, timeline, budget,
    request_types, focus_areas, additional_requirements, preferred_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING ` + requestColumns
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanRequest(s.pool.QueryRow(ctx, q,
		in.FirstName, in.LastName, in.Email, in.Phone, in.Company, in.JobTitle,
		in.Industry, in.CompanySize, repo.EncodeList(in.Challenges), in.Timeline, in.Budget,
		repo.JoinTags(in.RequestTypes), repo.EncodeList(in.FocusAreas), in.AdditionalRequirements, in.PreferredDate,
	))
}

func (s *Store) ListRequests(ctx context.Context) ([]domain.Request, error) {
	const q = `SELECT ` + requestColumns + ` FROM requests ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []domain.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
