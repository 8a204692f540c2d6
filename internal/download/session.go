package download

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/importer"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/settings"
)

// Credential keys, stored as "<importerType>-<key>".
const (
	UsernameKey = "username"
	PasswordKey = "password"
	DeviceIDKey = "deviceId"
)

// Prompt names shown to the user.
const (
	UsernamePrompt    = "Username"
	PasswordPrompt    = "Password"
	OTPPrompt         = "One Time Password"
	ChannelPrompt     = "Prefered OTP option"
	RemoveSavedPrompt = "The login failed. Do you want to remove the saved credentials"
)

// Credentials are the login values of one institution. DeviceID is empty
// until a device was trusted.
type Credentials struct {
	Username string
	Password string
	DeviceID string
}

// Channel is a one time password delivery option, e.g. {SMS, 555-1234}.
type Channel struct {
	Type  string
	Value string
}

// Session is the authentication side of a download: saved credentials,
// prompts for missing ones and multi factor input.
type Session struct {
	importerType string
	store        *settings.Credentials
	delegate     importer.Delegate
	usedSaved    bool
}

// NewSession creates a session for importerType. store and delegate may be
// nil, in which case nothing is saved or nothing can be asked.
func NewSession(importerType string, store *settings.Credentials, delegate importer.Delegate) *Session {
	return &Session{importerType: importerType, store: store, delegate: delegate}
}

func (s *Session) key(key string) string {
	return s.importerType + "-" + key
}

// Read returns a namespaced credential.
func (s *Session) Read(ctx context.Context, key string) (string, bool, error) {
	if s.store == nil {
		return "", false, nil
	}
	return s.store.Read(ctx, s.key(key))
}

// Save stores a namespaced credential.
func (s *Session) Save(ctx context.Context, key, value string) error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(ctx, s.key(key), value)
}

// Credentials reads the saved credentials and asks for the missing username
// and password, in that order.
func (s *Session) Credentials(ctx context.Context) (Credentials, error) {
	var c Credentials
	var err error
	var saved bool

	if c.Username, saved, err = s.Read(ctx, UsernameKey); err != nil {
		return Credentials{}, err
	}
	s.usedSaved = saved
	if c.Password, saved, err = s.Read(ctx, PasswordKey); err != nil {
		return Credentials{}, err
	}
	s.usedSaved = s.usedSaved || saved
	if c.DeviceID, _, err = s.Read(ctx, DeviceIDKey); err != nil {
		return Credentials{}, err
	}

	if c.Username == "" {
		if c.Username, err = s.ask(ctx, importer.InputRequest{Name: UsernamePrompt, Kind: importer.InputText}); err != nil {
			return Credentials{}, err
		}
	}
	if c.Password == "" {
		if c.Password, err = s.ask(ctx, importer.InputRequest{Name: PasswordPrompt, Kind: importer.InputSecret}); err != nil {
			return Credentials{}, err
		}
	}
	return c, nil
}

// Remember saves username and password after a successful login.
func (s *Session) Remember(ctx context.Context, c Credentials) error {
	if err := s.Save(ctx, UsernameKey, c.Username); err != nil {
		return err
	}
	return s.Save(ctx, PasswordKey, c.Password)
}

// LoginFailed reports err. When saved credentials were used the user may
// remove them, which blanks all three keys.
func (s *Session) LoginFailed(ctx context.Context, err error) error {
	s.Report(err)
	if !s.usedSaved || s.delegate == nil {
		return nil
	}
	answer, askErr := s.ask(ctx, importer.InputRequest{Name: RemoveSavedPrompt, Kind: importer.InputBool})
	if askErr != nil {
		return askErr
	}
	remove, _ := strconv.ParseBool(answer)
	if !remove {
		return nil
	}
	for _, key := range []string{UsernameKey, PasswordKey, DeviceIDKey} {
		if err := s.Save(ctx, key, ""); err != nil {
			return err
		}
	}
	s.usedSaved = false
	return nil
}

// OTP asks for a one time password.
func (s *Session) OTP(ctx context.Context) (string, error) {
	return s.ask(ctx, importer.InputRequest{Name: OTPPrompt, Kind: importer.InputOTP})
}

// SelectChannel picks the delivery channel of the one time password. A
// single channel is used without asking.
func (s *Session) SelectChannel(ctx context.Context, channels []Channel) (Channel, error) {
	switch len(channels) {
	case 0:
		return Channel{}, fmt.Errorf("no one time password channel offered")
	case 1:
		return channels[0], nil
	}
	values := make([]string, len(channels))
	for i, c := range channels {
		values[i] = c.Value
	}
	answer, err := s.ask(ctx, importer.InputRequest{Name: ChannelPrompt, Kind: importer.InputChoice, Choices: values})
	if err != nil {
		return Channel{}, err
	}
	for _, c := range channels {
		if c.Value == answer {
			return c, nil
		}
	}
	return Channel{}, fmt.Errorf("unknown one time password option %q", answer)
}

// SaveDeviceID keeps the token of a newly trusted device.
func (s *Session) SaveDeviceID(ctx context.Context, id string) error {
	return s.Save(ctx, DeviceIDKey, id)
}

// Report sends err to the error sink.
func (s *Session) Report(err error) {
	if s.delegate != nil && err != nil {
		s.delegate.Error(err)
	}
}

func (s *Session) ask(ctx context.Context, request importer.InputRequest) (string, error) {
	if s.delegate == nil {
		return "", fmt.Errorf("cannot ask for %s: no input delegate", request.Name)
	}
	value, err := s.delegate.RequestInput(ctx, request)
	if err != nil {
		return "", fmt.Errorf("failed to request %s: %w", request.Name, err)
	}
	return value, nil
}
