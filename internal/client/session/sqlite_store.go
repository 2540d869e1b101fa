package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/cryptox"
	"github.com/dmitrijs2005/storefront/internal/dbx"
	"github.com/dmitrijs2005/storefront/internal/logging"
)

// SQLiteStore keeps the session in the metadata table.
type SQLiteStore struct {
	db     *sql.DB
	sealer *cryptox.Sealer
	log    logging.Logger
}

type Option func(*SQLiteStore)

// WithSealer encrypts both values at rest.
func WithSealer(s *cryptox.Sealer) Option {
	return func(st *SQLiteStore) { st.sealer = s }
}

func WithLogger(l logging.Logger) Option {
	return func(st *SQLiteStore) { st.log = l }
}

func NewSQLiteStore(db *sql.DB, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{db: db, log: logging.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SQLiteStore) repo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// Save writes token and user in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, token string, user models.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	tokenVal, err := s.seal([]byte(token))
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	userVal, err := s.seal(userJSON)
	if err != nil {
		return fmt.Errorf("seal user: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := s.repo(tx)
		if err := r.Set(ctx, common.AccessTokenKey, tokenVal); err != nil {
			return err
		}
		return r.Set(ctx, common.UserKey, userVal)
	})
}

// Load returns the stored session or ErrNoSession. A partial or undecodable
// session is cleared before ErrNoSession is returned.
func (s *SQLiteStore) Load(ctx context.Context) (*Session, error) {
	values, err := s.repo(s.db).GetMany(ctx, common.AccessTokenKey, common.UserKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	rawToken, hasToken := values[common.AccessTokenKey]
	rawUser, hasUser := values[common.UserKey]

	switch {
	case !hasToken && !hasUser:
		return nil, ErrNoSession
	case !hasToken || !hasUser:
		s.log.Warn(ctx, "discarding partial session", "has_token", hasToken, "has_user", hasUser)
		return nil, s.discard(ctx)
	}

	token, err := s.open(rawToken)
	if err != nil {
		s.log.Warn(ctx, "discarding unreadable session token", "error", err)
		return nil, s.discard(ctx)
	}
	userJSON, err := s.open(rawUser)
	if err != nil {
		s.log.Warn(ctx, "discarding unreadable session user", "error", err)
		return nil, s.discard(ctx)
	}

	var user models.User
	if err := json.Unmarshal(userJSON, &user); err != nil {
		s.log.Warn(ctx, "discarding undecodable session user", "error", err)
		return nil, s.discard(ctx)
	}
	if len(token) == 0 {
		return nil, s.discard(ctx)
	}

	return &Session{Token: string(token), User: user}, nil
}

// Clear removes the session keys. Clearing an empty store is not an error.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := s.repo(s.db).Delete(ctx, common.AccessTokenKey, common.UserKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Token(ctx context.Context) (string, error) {
	raw, err := s.repo(s.db).Get(ctx, common.AccessTokenKey)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if raw == nil {
		return "", nil
	}
	token, err := s.open(raw)
	if err != nil {
		return "", nil
	}
	return string(token), nil
}

func (s *SQLiteStore) discard(ctx context.Context) error {
	if err := s.Clear(ctx); err != nil {
		return err
	}
	return ErrNoSession
}

func (s *SQLiteStore) seal(v []byte) ([]byte, error) {
	if s.sealer == nil {
		return v, nil
	}
	return s.sealer.Seal(v)
}

func (s *SQLiteStore) open(v []byte) ([]byte, error) {
	if s.sealer == nil {
		return v, nil
	}
	return s.sealer.Open(v)
}
