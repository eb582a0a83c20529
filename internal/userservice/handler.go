package userservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/sushihentaime/blogcms/internal/common"
)

var (
	ErrAuthenticationFailure = errors.New("no active account found with the given credentials")
)

// NewUserService wires the identity store. mb may be nil, in which case no registration events are published.
func NewUserService(db *sql.DB, mb common.MessageProducer, c *common.Cache, tokens *TokenManager, media MediaResolver, logger *slog.Logger) *UserService {
	return &UserService{
		m:      newUserModel(db),
		mb:     mb,
		c:      c,
		tokens: tokens,
		media:  media,
		logger: logger,
	}
}

// CreateUser registers an account together with its profile and publishes a user.registered event.
func (s *UserService) CreateUser(ctx context.Context, r RegisterRequest) (*User, error) {
	v := common.NewValidator()
	validateRegistration(v, r)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u := User{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}

	err := u.Password.set(r.Password)
	if err != nil {
		return nil, err
	}

	err = common.WithTx(ctx, s.m.db, func(tx *sql.Tx) error {
		exists, err := s.m.usernameExists(ctx, tx, u.Username)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateUsername
		}

		if u.Email != "" {
			exists, err = s.m.emailExists(ctx, tx, u.Email)
			if err != nil {
				return err
			}
			if exists {
				return ErrDuplicateEmail
			}
		}

		err = s.m.insertUser(ctx, tx, &u)
		if err != nil {
			return err
		}

		return s.m.insertProfile(ctx, tx, u.ID)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateUsername):
			return nil, common.NewFieldError("username", "a user with that username already exists")
		case errors.Is(err, ErrDuplicateEmail):
			return nil, common.NewFieldError("email", "a user with that email already exists")
		default:
			return nil, err
		}
	}

	s.publishRegistered(ctx, &u)

	return &u, nil
}

func (s *UserService) publishRegistered(ctx context.Context, u *User) {
	if s.mb == nil {
		return
	}

	data, err := json.Marshal(registeredEvent{UserID: u.ID, Username: u.Username, Email: u.Email})
	if err != nil {
		s.logger.Error("could not encode registration event", "error", err, "user_id", u.ID)
		return
	}

	// The account exists at this point, so a broker failure only costs the welcome email.
	err = s.mb.Publish(ctx, data, common.UserRegisteredKey, common.UserExchange)
	if err != nil {
		s.logger.Error("could not publish registration event", "error", err, "user_id", u.ID)
	}
}

// LoginUser checks the credentials and returns a fresh access/refresh pair.
func (s *UserService) LoginUser(ctx context.Context, username, password string) (*TokenPair, error) {
	v := common.NewValidator()
	v.Check(username != "", "username", "must be provided")
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	user, err := s.m.getUserByUsername(ctx, username)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrAuthenticationFailure
		default:
			return nil, err
		}
	}

	ok, err := user.Password.compare(password)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrAuthenticationFailure
	}

	return s.tokens.newPair(user)
}

// RefreshAccessToken exchanges a valid refresh token for a new access token.
func (s *UserService) RefreshAccessToken(ctx context.Context, refresh string) (string, error) {
	v := common.NewValidator()
	v.Check(refresh != "", "refresh", "must be provided")
	if !v.Valid() {
		return "", v.ValidationError()
	}

	id, _, err := s.tokens.parse(refresh, tokenTypeRefresh)
	if err != nil {
		return "", err
	}

	user, err := s.loadUser(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return "", ErrInvalidToken
		default:
			return "", err
		}
	}

	return s.tokens.newToken(user, tokenTypeAccess, s.tokens.accessTTL)
}

// GetUserByAccessToken resolves the bearer of an access token. Deleted accounts yield ErrInvalidToken.
// The user is always read from the database so permission changes made by another process
// apply to the next request.
func (s *UserService) GetUserByAccessToken(ctx context.Context, token string) (*User, error) {
	id, _, err := s.tokens.parse(token, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrInvalidToken
		default:
			return nil, err
		}
	}

	return user, nil
}

// GetUserByID reads through the user cache.
func (s *UserService) GetUserByID(ctx context.Context, id int) (*User, error) {
	key := common.CacheKeyUser(id)

	if s.c != nil {
		if cached, ok := s.c.Get(key); ok {
			u := cached.(User)
			return &u, nil
		}
	}

	return s.loadUser(ctx, id)
}

// loadUser reads a user from the database and refreshes its cache entry.
func (s *UserService) loadUser(ctx context.Context, id int) (*User, error) {
	user, err := s.m.getUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.invalidate(id)
		}
		return nil, err
	}

	if s.c != nil {
		s.c.Set(common.CacheKeyUser(id), *user)
	}

	return user, nil
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	user, err := s.m.getUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	user.Permissions, err = s.m.getUserPermissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetProfile returns the caller's profile, creating an empty one if the account predates profiles.
func (s *UserService) GetProfile(ctx context.Context, userID int) (*Profile, error) {
	v := common.NewValidator()
	validateInt(v, userID, "user_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	err := s.m.ensureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	p, err := s.m.getProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	p.AvatarURL = s.avatarURL(p.Avatar)
	p.ProfilePictureURL = p.AvatarURL

	return p, nil
}

// UpdateProfile applies the non-nil fields of r. Username and email are not mutable here.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, r UpdateProfileRequest) (*Profile, error) {
	v := common.NewValidator()
	validateInt(v, userID, "user_id")
	validateProfileUpdate(v, r)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	err := common.WithTx(ctx, s.m.db, func(tx *sql.Tx) error {
		if r.FirstName != nil || r.LastName != nil {
			err := s.m.updateUserNames(ctx, tx, userID, r.FirstName, r.LastName)
			if err != nil {
				return err
			}
		}

		err := s.m.insertProfile(ctx, tx, userID)
		if err != nil {
			return err
		}

		return s.m.updateProfile(ctx, tx, userID, r.Bio, r.Avatar)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(userID)

	return s.GetProfile(ctx, userID)
}

// DeleteUser removes the account. Posts and the profile go with it.
func (s *UserService) DeleteUser(ctx context.Context, userID int) error {
	err := s.m.deleteUser(ctx, userID)
	if err != nil {
		return err
	}

	s.invalidate(userID)

	return nil
}

func (s *UserService) GrantPermission(ctx context.Context, userID int, permission Permission) error {
	err := common.WithTx(ctx, s.m.db, func(tx *sql.Tx) error {
		return s.m.addUserPermission(ctx, tx, userID, permission)
	})
	if err != nil {
		if common.ForeignKeyViolation(err, "user_permissions_user_id_fkey") {
			return ErrNotFound
		}
		return err
	}

	s.invalidate(userID)

	return nil
}

func (s *UserService) RevokePermission(ctx context.Context, userID int, permission Permission) error {
	err := s.m.removeUserPermission(ctx, userID, permission)
	if err != nil {
		return err
	}

	s.invalidate(userID)

	return nil
}

func (s *UserService) invalidate(userID int) {
	if s.c != nil {
		s.c.Delete(common.CacheKeyUser(userID))
	}
}

func (s *UserService) avatarURL(avatar *string) string {
	if avatar == nil || s.media == nil {
		return DefaultAvatarURL
	}

	return s.media.URL(*avatar)
}

func (u *User) IsAnonymous() bool {
	return u == &AnonymousUser
}

func (u *User) HasPermission(permission Permission) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}

	return false
}
