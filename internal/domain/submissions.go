package domain

import (
	"strings"
	"time"
)

type ContactInput struct {
	FirstName      string   `json:"firstName" validate:"required,max=100"`
	LastName       string   `json:"lastName" validate:"required,max=100"`
	Email          string   `json:"email" validate:"required,email,max=254"`
	Company        string   `json:"company" validate:"required,max=200"`
	Phone          *string  `json:"phone,omitempty" validate:"omitempty,max=50"`
	CompanySize    *string  `json:"companySize,omitempty" validate:"omitempty,max=50"`
	Message        string   `json:"message" validate:"required,max=5000"`
	PrivacyConsent FlexBool `json:"privacyConsent"`
}

func (in *ContactInput) Normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = NormalizeEmail(in.Email)
	in.Company = strings.TrimSpace(in.Company)
	in.Phone = optional(in.Phone)
	in.CompanySize = optional(in.CompanySize)
	in.Message = strings.TrimSpace(in.Message)
}

type ContactSubmission struct {
	ID             int64     `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	Company        string    `json:"company"`
	Phone          *string   `json:"phone"`
	CompanySize    *string   `json:"companySize"`
	Message        string    `json:"message"`
	PrivacyConsent bool      `json:"privacyConsent"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

func (c *ContactSubmission) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type NewsletterInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (in *NewsletterInput) Normalize() {
	in.Email = NormalizeEmail(in.Email)
}

type NewsletterSubscription struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

// RequestInput is a demo, showcase or assessment request.
type RequestInput struct {
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Email     string  `json:"email" validate:"required,email,max=254"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Company   string  `json:"company" validate:"required,max=200"`
	JobTitle  *string `json:"jobTitle,omitempty" validate:"omitempty,max=100"`

	Industry    *string  `json:"industry,omitempty" validate:"omitempty,max=100"`
	CompanySize *string  `json:"companySize,omitempty" validate:"omitempty,max=50"`
	Challenges  []string `json:"challenges,omitempty" validate:"omitempty,max=20,dive,required,max=300"`
	Timeline    *string  `json:"timeline,omitempty" validate:"omitempty,max=100"`
	Budget      *string  `json:"budget,omitempty" validate:"omitempty,max=100"`

	RequestTypes           TagList  `json:"requestTypes" validate:"required,min=1,max=10,dive,required,max=50,excludesall=0x2C"`
	FocusAreas             []string `json:"focusAreas,omitempty" validate:"omitempty,max=20,dive,required,max=200"`
	AdditionalRequirements *string  `json:"additionalRequirements,omitempty" validate:"omitempty,max=5000"`
	PreferredDate          *string  `json:"preferredDate,omitempty" validate:"omitempty,max=50"`
}

func (in *RequestInput) Normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = NormalizeEmail(in.Email)
	in.Phone = optional(in.Phone)
	in.Company = strings.TrimSpace(in.Company)
	in.JobTitle = optional(in.JobTitle)
	in.Industry = optional(in.Industry)
	in.CompanySize = optional(in.CompanySize)
	in.Challenges = trimList(in.Challenges)
	in.Timeline = optional(in.Timeline)
	in.Budget = optional(in.Budget)
	in.RequestTypes = TagList(trimList(in.RequestTypes))
	in.FocusAreas = trimList(in.FocusAreas)
	in.AdditionalRequirements = optional(in.AdditionalRequirements)
	in.PreferredDate = optional(in.PreferredDate)
}

type Request struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	Company   string  `json:"company"`
	JobTitle  *string `json:"jobTitle"`

	Industry    *string  `json:"industry"`
	CompanySize *string  `json:"companySize"`
	Challenges  []string `json:"challenges"`
	Timeline    *string  `json:"timeline"`
	Budget      *string  `json:"budget"`

	RequestTypes           []string  `json:"requestTypes"`
	FocusAreas             []string  `json:"focusAreas"`
	AdditionalRequirements *string   `json:"additionalRequirements"`
	PreferredDate          *string   `json:"preferredDate"`
	SubmittedAt            time.Time `json:"submittedAt"`
}

func (r *Request) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func trimList(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
