package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/option"

	"github.com/growme/backend/internal/models"
)

type contextKey string

const (
	UserIDKey      contextKey = "userID"
	UserEmailKey   contextKey = "userEmail"
	UserNameKey    contextKey = "userName"
	UserPictureKey contextKey = "userPicture"
	ProviderKey    contextKey = "provider"
)

// FirebaseAuthConfig holds what we need to verify Firebase ID tokens
// server-side.
type FirebaseAuthConfig struct {
	ProjectID       string
	CredentialsJSON string
}

// NewFirebaseAuthClient initializes the Firebase Admin auth client used to
// verify ID tokens from federated and Firebase-password sign-ins.
func NewFirebaseAuthClient(ctx context.Context, cfg FirebaseAuthConfig) (*fbauth.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, err
	}
	return app.Auth(ctx)
}

// Auth validates the bearer token on every request: a Firebase ID token
// when the Firebase client is configured, falling back to a locally issued
// session JWT. On success the identity fields land in the request context.
func Auth(authClient *fbauth.Client, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, "Authorization header required")
				return
			}

			if authClient != nil {
				if token, err := authClient.VerifyIDToken(r.Context(), tokenString); err == nil {
					next.ServeHTTP(w, r.WithContext(firebaseContext(r.Context(), token)))
					return
				}
			}

			ctx, err := localJWTContext(r.Context(), tokenString, jwtSecret)
			if err != nil {
				writeAuthError(w, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// JWTAuth accepts only locally issued session JWTs. Used in tests and in
// deployments without Firebase configured.
func JWTAuth(jwtSecret string) func(http.Handler) http.Handler {
	return Auth(nil, jwtSecret)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func firebaseContext(ctx context.Context, token *fbauth.Token) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, token.UID)
	if email, ok := token.Claims["email"].(string); ok {
		ctx = context.WithValue(ctx, UserEmailKey, email)
	}
	if name, ok := token.Claims["name"].(string); ok {
		ctx = context.WithValue(ctx, UserNameKey, name)
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		ctx = context.WithValue(ctx, UserPictureKey, picture)
	}
	ctx = context.WithValue(ctx, ProviderKey, token.Firebase.SignInProvider)
	return ctx
}

func localJWTContext(ctx context.Context, tokenString, jwtSecret string) (context.Context, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	ctx = context.WithValue(ctx, UserIDKey, userID)
	if email, ok := claims["email"].(string); ok {
		ctx = context.WithValue(ctx, UserEmailKey, email)
	}
	if name, ok := claims["name"].(string); ok {
		ctx = context.WithValue(ctx, UserNameKey, name)
	}
	ctx = context.WithValue(ctx, ProviderKey, "password")
	return ctx, nil
}

// WithIdentity returns a context carrying the given identity fields, for
// in-process callers and tests.
func WithIdentity(ctx context.Context, userID, email, name string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, UserEmailKey, email)
	return context.WithValue(ctx, UserNameKey, name)
}

// GetUserID extracts the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

func GetUserEmail(ctx context.Context) string {
	email, _ := ctx.Value(UserEmailKey).(string)
	return email
}

func GetUserName(ctx context.Context) string {
	name, _ := ctx.Value(UserNameKey).(string)
	return name
}

func GetUserPicture(ctx context.Context) string {
	picture, _ := ctx.Value(UserPictureKey).(string)
	return picture
}

func GetProvider(ctx context.Context) string {
	provider, _ := ctx.Value(ProviderKey).(string)
	return provider
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.NewErrorResponse(message))
}
