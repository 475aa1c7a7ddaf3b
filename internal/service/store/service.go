package store

import (
	"database/sql"
	"strings"

	"github.com/sirupsen/logrus"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/logger"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = apperr.NotFound("record")

// ErrNameTaken is returned when a prompt type name belongs to another record.
var ErrNameTaken = apperr.Validation("prompt type name already in use")

// Service persists processing logs, saved results, custom prompt types and
// settings.
type Service struct {
	db     *sql.DB
	driver string
	sealer *settingSealer
	log    *logrus.Entry
}

// NewService builds the store. Secret settings are encrypted when
// METINANALIZ_SECRET_KEY is set and stored as plaintext otherwise.
func NewService(db *sql.DB, driver string) *Service {
	s := &Service{db: db, driver: strings.ToLower(driver), log: logger.For("store")}
	sealer, err := sealerFromEnv()
	switch {
	case err != nil:
		s.log.WithError(err).Warn("secret settings stored without encryption")
	case sealer == nil:
		s.log.Warnf("%s not set, secret settings stored without encryption", secretKeyEnv)
	default:
		s.sealer = sealer
	}
	return s
}

// DB exposes the underlying handle for maintenance tasks.
func (s *Service) DB() *sql.DB { return s.db }

func (s *Service) Driver() string { return s.driver }

func (s *Service) isMySQL() bool { return s.driver == "mysql" }
