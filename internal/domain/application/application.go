// Package application holds the loan application documents: the current
// shape with role-tagged clients and the legacy main/co-applicant shape.
package application

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is the version stamped on current-shape documents.
const SchemaVersion = 2

// Client is a person attached to an application.
type Client struct {
	Email          string  `json:"email"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	NationalID     string  `json:"nationalId"`
	ClientID       string  `json:"clientId"`
	Role           Role    `json:"role"`
	ParentClientID *string `json:"parentClientId"`
}

// Application is the current application shape.
type Application struct {
	ID            string    `json:"id"`
	Product       string    `json:"product"`
	Transaction   string    `json:"transaction"`
	Channel       string    `json:"channel"`
	Branch        *string   `json:"branch,omitempty"`
	Status        string    `json:"status"`
	User          string    `json:"user"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Clients       []Client  `json:"clients"`
	SchemaVersion int       `json:"schemaVersion,omitempty"`
}

// Source returns the stored form. Timestamps stay time.Time.
func (a *Application) Source() map[string]any {
	clients := make([]any, 0, len(a.Clients))
	for _, c := range a.Clients {
		var parent any
		if c.ParentClientID != nil {
			parent = *c.ParentClientID
		}
		clients = append(clients, map[string]any{
			"email":          c.Email,
			"firstName":      c.FirstName,
			"lastName":       c.LastName,
			"nationalId":     c.NationalID,
			"clientId":       c.ClientID,
			"role":           string(c.Role),
			"parentClientId": parent,
		})
	}
	src := header(a.ID, a.Product, a.Transaction, a.Channel, a.Branch, a.Status, a.User, a.CreatedAt, a.UpdatedAt)
	src["clients"] = clients
	src["schemaVersion"] = SchemaVersion
	return src
}

// Person is a client in the legacy shape.
type Person struct {
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	NationalID string `json:"nationalId"`
	ClientID   string `json:"clientId"`
}

// Applicant is a legacy applicant: a client plus an optional spouse.
type Applicant struct {
	Client Person  `json:"client"`
	Spouse *Person `json:"spouse,omitempty"`
}

// Legacy is the pre-migration application shape.
type Legacy struct {
	ID            string      `json:"id"`
	Product       string      `json:"product"`
	Transaction   string      `json:"transaction"`
	Channel       string      `json:"channel"`
	Branch        *string     `json:"branch,omitempty"`
	Status        string      `json:"status"`
	User          string      `json:"user"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	MainApplicant Applicant   `json:"mainApplicant"`
	CoApplicants  []Applicant `json:"coApplicants"`
}

// Source returns the stored form.
func (l *Legacy) Source() map[string]any {
	co := make([]any, 0, len(l.CoApplicants))
	for _, a := range l.CoApplicants {
		co = append(co, a.source())
	}
	src := header(l.ID, l.Product, l.Transaction, l.Channel, l.Branch, l.Status, l.User, l.CreatedAt, l.UpdatedAt)
	src["mainApplicant"] = l.MainApplicant.source()
	src["coApplicants"] = co
	return src
}

func (a Applicant) source() map[string]any {
	m := map[string]any{"client": a.Client.source()}
	if a.Spouse != nil {
		m["spouse"] = a.Spouse.source()
	}
	return m
}

func (p Person) source() map[string]any {
	return map[string]any{
		"email":      p.Email,
		"firstName":  p.FirstName,
		"lastName":   p.LastName,
		"nationalId": p.NationalID,
		"clientId":   p.ClientID,
	}
}

func header(id, product, transaction, channel string, branch *string, status, user string, created, updated time.Time) map[string]any {
	src := map[string]any{
		"id":          id,
		"product":     product,
		"transaction": transaction,
		"channel":     channel,
		"status":      status,
		"user":        user,
		"createdAt":   created.UTC(),
		"updatedAt":   updated.UTC(),
	}
	if branch != nil {
		src["branch"] = *branch
	}
	return src
}

// FromSource decodes a stored current-shape document.
func FromSource(src map[string]any) (Application, error) {
	var a Application
	if err := decode(src, &a); err != nil {
		return Application{}, fmt.Errorf("decode application: %w", err)
	}
	return a, nil
}

// LegacyFromSource decodes a stored legacy document.
func LegacyFromSource(src map[string]any) (Legacy, error) {
	var l Legacy
	if err := decode(src, &l); err != nil {
		return Legacy{}, fmt.Errorf("decode legacy application: %w", err)
	}
	return l, nil
}

func decode(src map[string]any, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
