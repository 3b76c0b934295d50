package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, DefaultBaseURL, s.CertView.BaseURL)
	assert.Equal(t, DefaultListEndpoint, s.CertView.ListEndpoint)
	assert.Equal(t, 60*time.Second, s.CertView.Timeout)
	assert.Equal(t, 50, s.CertView.PageSize)
	assert.Equal(t, 6*time.Hour, s.Sync.ScheduleInterval)
	assert.False(t, s.Sync.ScheduleEnabled)
	assert.Equal(t, DefaultServerAddress, s.Server.Address)
}

func TestCertViewSettings_URLs(t *testing.T) {
	s := CertViewSettings{BaseURL: "https://api.example.com/", ListEndpoint: "/certs/list"}

	assert.Equal(t, "https://api.example.com/certs/list", s.ListURL())
	assert.Equal(t, "https://api.example.com/auth/token", s.ResolvedAuthURL())

	s.AuthURL = "https://login.example.com/token"
	assert.Equal(t, "https://login.example.com/token", s.ResolvedAuthURL())
}

func TestCertViewSettings_Validate(t *testing.T) {
	valid := DefaultAppSettings().CertView
	valid.Username = "user"
	valid.Password = "secret"
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*CertViewSettings)
		target error
	}{
		{"bad url", func(s *CertViewSettings) { s.BaseURL = "not a url" }, ErrInvalidInput},
		{"endpoint without slash", func(s *CertViewSettings) { s.ListEndpoint = "certs" }, ErrInvalidInput},
		{"zero page size", func(s *CertViewSettings) { s.PageSize = 0 }, ErrInvalidInput},
		{"no password", func(s *CertViewSettings) { s.Password = "" }, ErrAuthRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), tt.target)
		})
	}
}

func TestCertViewSettings_HasCredentials(t *testing.T) {
	assert.False(t, CertViewSettings{Username: "u"}.HasCredentials())
	assert.True(t, CertViewSettings{Username: "u", Password: "p"}.HasCredentials())
	assert.True(t, CertViewSettings{AuthPayload: `{"client":"x"}`}.HasCredentials())
}
