package models

import (
	"strings"
	"time"

	dErrors "marketparticipant/pkg/domain-errors"
)

// CertificateCredentials identify an actor by a certificate thumbprint.
type CertificateCredentials struct {
	Thumbprint       string `json:"thumbprint"`
	LookupIdentifier string `json:"lookup_identifier,omitempty"`
}

// ClientSecretCredentials identify an actor by an identity-provider secret.
type ClientSecretCredentials struct {
	ClientID         string    `json:"client_id"`
	SecretIdentifier string    `json:"secret_identifier,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Credentials hold exactly one of a certificate or a client secret.
type Credentials struct {
	Certificate  *CertificateCredentials  `json:"certificate,omitempty"`
	ClientSecret *ClientSecretCredentials `json:"client_secret,omitempty"`
}

// NewCertificateCredentials normalizes the thumbprint to upper case.
func NewCertificateCredentials(thumbprint, lookupIdentifier string) (*Credentials, error) {
	c := &Credentials{Certificate: &CertificateCredentials{
		Thumbprint:       strings.ToUpper(strings.TrimSpace(thumbprint)),
		LookupIdentifier: lookupIdentifier,
	}}
	return c, c.Validate()
}

func NewClientSecretCredentials(clientID, secretIdentifier string, expiresAt time.Time) (*Credentials, error) {
	c := &Credentials{ClientSecret: &ClientSecretCredentials{
		ClientID:         strings.TrimSpace(clientID),
		SecretIdentifier: secretIdentifier,
		ExpiresAt:        expiresAt,
	}}
	return c, c.Validate()
}

// Validate enforces that exactly one credential kind is present.
func (c *Credentials) Validate() error {
	if (c.Certificate == nil) == (c.ClientSecret == nil) {
		return dErrors.Validation("actor.credentials.exactly_one", "credentials must be either a certificate or a client secret")
	}
	if c.Certificate != nil && c.Certificate.Thumbprint == "" {
		return dErrors.Validation("actor.credentials.thumbprint_required", "certificate thumbprint is required")
	}
	if c.ClientSecret != nil && c.ClientSecret.ClientID == "" {
		return dErrors.Validation("actor.credentials.client_id_required", "client id is required")
	}
	return nil
}

// Kind returns "certificate" or "client_secret".
func (c *Credentials) Kind() string {
	if c.Certificate != nil {
		return "certificate"
	}
	return "client_secret"
}

// Identifier returns the thumbprint or the client id.
func (c *Credentials) Identifier() string {
	if c.Certificate != nil {
		return c.Certificate.Thumbprint
	}
	return c.ClientSecret.ClientID
}

func (c *Credentials) clone() *Credentials {
	if c == nil {
		return nil
	}
	out := &Credentials{}
	if c.Certificate != nil {
		cert := *c.Certificate
		out.Certificate = &cert
	}
	if c.ClientSecret != nil {
		secret := *c.ClientSecret
		out.ClientSecret = &secret
	}
	return out
}
