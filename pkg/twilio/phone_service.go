package twilio

import (
	"fmt"
	"sync"
	"time"

	"github.com/coveplatform/mosh/pkg/logger"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// PhoneConfig is the BYO-number block handed to the voice provider so that
// outbound calls are routed through our Twilio account.
type PhoneConfig struct {
	TwilioAccountSID string `json:"twilioAccountSid"`
	TwilioAuthToken  string `json:"twilioAuthToken"`
	Number           string `json:"number"`
}

// PhoneService validates Twilio credentials and verifies that the configured
// outbound caller number actually belongs to the account. The verification
// result is cached and refreshed periodically so a Twilio outage at startup
// does not permanently disable dispatch.
type PhoneService struct {
	client     *twilio.RestClient
	accountSID string
	authToken  string
	number     string

	mutex         sync.RWMutex
	verified      bool
	lastCheckTime time.Time
	enabled       bool
	refreshTicker *time.Ticker
	stopChan      chan struct{}
}

// NewPhoneService creates a phone service. If any credential is empty the
// service is disabled and GetPhoneConfig returns an error.
func NewPhoneService(accountSID, authToken, number string, enableAutoRefresh bool) *PhoneService {
	if accountSID == "" || authToken == "" || number == "" {
		logger.Base().Warn("Twilio credentials not provided, outbound caller-id service disabled")
		return &PhoneService{enabled: false}
	}

	s := &PhoneService{
		client:     twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken}),
		accountSID: accountSID,
		authToken:  authToken,
		number:     number,
		enabled:    true,
		stopChan:   make(chan struct{}),
	}

	if err := s.VerifyNumber(); err != nil {
		logger.Base().Error("initial Twilio number verification failed", zap.Error(err))
		// Leave the service enabled; refresh or on-demand checks can recover.
	}

	if enableAutoRefresh {
		s.StartAutoRefresh()
	}

	return s
}

// VerifyNumber checks that the configured number is an incoming phone number
// on the Twilio account.
func (s *PhoneService) VerifyNumber() error {
	if !s.enabled {
		return fmt.Errorf("twilio phone service is disabled")
	}

	params := &api.ListIncomingPhoneNumberParams{}
	params.SetPhoneNumber(s.number)
	params.SetLimit(1)

	numbers, err := s.client.Api.ListIncomingPhoneNumber(params)
	if err != nil {
		return fmt.Errorf("failed to list incoming phone numbers: %w", err)
	}

	s.mutex.Lock()
	s.verified = len(numbers) > 0
	s.lastCheckTime = time.Now()
	s.mutex.Unlock()

	if len(numbers) == 0 {
		logger.Base().Warn("configured outbound number not found on Twilio account",
			zap.String("number", s.number))
		return fmt.Errorf("number %s not found on account", s.number)
	}

	logger.Base().Info("Twilio outbound number verified", zap.String("number", s.number))
	return nil
}

// GetPhoneConfig returns the BYO phone block for the voice provider.
// An unverified number is retried on demand before giving up.
func (s *PhoneService) GetPhoneConfig() (*PhoneConfig, error) {
	if !s.enabled {
		return nil, fmt.Errorf("twilio phone service is disabled")
	}

	s.mutex.RLock()
	verified := s.verified
	s.mutex.RUnlock()

	if !verified {
		if err := s.VerifyNumber(); err != nil {
			return nil, err
		}
	}

	return &PhoneConfig{
		TwilioAccountSID: s.accountSID,
		TwilioAuthToken:  s.authToken,
		Number:           s.number,
	}, nil
}

// StartAutoRefresh re-verifies the number once a day so revoked credentials
// surface in logs instead of at the next dispatch.
func (s *PhoneService) StartAutoRefresh() {
	if !s.enabled {
		return
	}

	refreshInterval := 24 * time.Hour
	s.refreshTicker = time.NewTicker(refreshInterval)

	go func() {
		logger.Base().Info("started Twilio number auto-verification", zap.Duration("interval", refreshInterval))
		for {
			select {
			case <-s.refreshTicker.C:
				if err := s.VerifyNumber(); err != nil {
					logger.Base().Error("Twilio number auto-verification failed", zap.Error(err))
				}
			case <-s.stopChan:
				logger.Base().Info("stopped Twilio number auto-verification")
				return
			}
		}
	}()
}

// Stop halts the auto-refresh goroutine.
func (s *PhoneService) Stop() {
	if s.refreshTicker != nil {
		s.refreshTicker.Stop()
		close(s.stopChan)
	}
}

// IsEnabled reports whether credentials were provided.
func (s *PhoneService) IsEnabled() bool {
	return s.enabled
}

// LastCheckAge returns how long ago the number was last verified.
func (s *PhoneService) LastCheckAge() time.Duration {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.lastCheckTime.IsZero() {
		return 0
	}
	return time.Since(s.lastCheckTime)
}
