package userservice

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/sushihentaime/blogcms/internal/common"
)

type Permission string
type Permissions []Permission

const (
	// PermissionAdmin unlocks featuring posts and detailed server errors.
	PermissionAdmin Permission = "admin"

	DefaultAccessTokenTTL  time.Duration = 5 * time.Minute
	DefaultRefreshTokenTTL time.Duration = 24 * time.Hour

	DefaultAvatarURL = "/static/images/default-avatar.png"
)

var (
	AnonymousUser = User{}
)

// MediaResolver turns a stored file reference into a public URL.
type MediaResolver interface {
	URL(key string) string
}

type UserService struct {
	m      *DBModel
	mb     common.MessageProducer
	c      *common.Cache
	tokens *TokenManager
	media  MediaResolver
	logger *slog.Logger
}

type DBModel struct {
	db *sql.DB
}

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Password  Password  `json:"-"`
	CreatedAt time.Time `json:"date_joined"`
	Version   int       `json:"-"`

	Permissions Permissions `json:"-"`
}

type Password struct {
	Plain string `json:"-"`
	hash  []byte `json:"-"`
}

// Profile is the public view of a user together with their profile row.
type Profile struct {
	ID         int       `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Bio        string    `json:"bio"`
	Avatar     *string   `json:"-"`
	AvatarURL  string    `json:"avatar_url"`
	PostCount  int       `json:"post_count"`
	DateJoined time.Time `json:"date_joined"`

	// ProfilePictureURL mirrors AvatarURL under the name older clients read.
	ProfilePictureURL string `json:"profile_picture_url"`
}

// TokenPair is returned on login. Field names follow the token endpoint's wire format.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type RegisterRequest struct {
	Username  string
	Email     string
	Password  string
	Password2 string
	FirstName string
	LastName  string
}

// UpdateProfileRequest carries the mutable profile fields. A nil field is left untouched.
type UpdateProfileRequest struct {
	FirstName *string
	LastName  *string
	Bio       *string
	Avatar    *string
}

// registeredEvent is published on the user exchange after a successful registration.
type registeredEvent struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
