// internal/infrastructure/database/firestore/client.go
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ClientWrapper wraps the Firestore client with its project
type ClientWrapper struct {
	Client    *firestore.Client
	ProjectID string
}

// NewClient initializes Firestore.
// An empty credentialsFile uses Application Default Credentials.
func NewClient(ctx context.Context, projectID, credentialsFile string, logger logrus.FieldLogger) (*ClientWrapper, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	logger.WithField("project_id", projectID).Info("✅ Firestore connected")
	return &ClientWrapper{Client: client, ProjectID: projectID}, nil
}

// Health runs a cheap read since Firestore has no ping API
func (cw *ClientWrapper) Health(ctx context.Context) error {
	if cw == nil || cw.Client == nil {
		return fmt.Errorf("firestore client is nil")
	}
	iter := cw.Client.Collections(ctx)
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("firestore ping failed: %w", err)
	}
	return nil
}

// Close closes the Firestore client
func (cw *ClientWrapper) Close() error {
	if cw == nil || cw.Client == nil {
		return nil
	}
	return cw.Client.Close()
}
