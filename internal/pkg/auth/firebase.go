// internal/pkg/auth/firebase.go
package auth

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseVerifier verifies Firebase ID tokens
type FirebaseVerifier struct {
	client *firebaseauth.Client
}

var _ TokenVerifier = (*FirebaseVerifier)(nil)

// NewFirebaseVerifier initializes a Firebase app for projectID and returns
// a verifier backed by its Auth client. credentialsFile may be empty to use
// application default credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app init failed: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth init failed: %w", err)
	}

	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	uid := strings.TrimSpace(decoded.UID)
	if uid == "" {
		return Identity{}, fmt.Errorf("%w: empty uid", ErrInvalidToken)
	}

	identity := Identity{UID: uid}
	if email, ok := decoded.Claims["email"].(string); ok {
		identity.Email = strings.TrimSpace(email)
	}
	return identity, nil
}
