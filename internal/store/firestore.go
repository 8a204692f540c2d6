package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection is the Firestore collection used when none is configured.
const DefaultCollection = "ledgerimport-settings"

// Firestore is a Store keeping one document per key in a collection.
type Firestore struct {
	client     *firestore.Client
	collection string
}

type setting struct {
	Key       string    `firestore:"key"`
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// OpenFirestore connects to Firestore through a Firebase app for projectID.
// credentialsFile may be empty to use Application Default Credentials (or the
// emulator when FIRESTORE_EMULATOR_HOST is set).
func OpenFirestore(ctx context.Context, projectID, collection, credentialsFile string) (*Firestore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore project ID is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &Firestore{client: client, collection: collection}, nil
}

// documentID encodes a key into a valid document ID. Keys contain "/" which
// Firestore treats as a path separator.
func documentID(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func (f *Firestore) Get(ctx context.Context, key string) (string, bool, error) {
	doc, err := f.client.Collection(f.collection).Doc(documentID(key)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %q: %w", key, err)
	}

	var s setting
	if err := doc.DataTo(&s); err != nil {
		return "", false, fmt.Errorf("failed to parse setting %q: %w", key, err)
	}
	return s.Value, true, nil
}

func (f *Firestore) Set(ctx context.Context, key, value string) error {
	_, err := f.client.Collection(f.collection).Doc(documentID(key)).Set(ctx, setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to write setting %q: %w", key, err)
	}
	return nil
}

func (f *Firestore) List(ctx context.Context, prefix string) (map[string]string, error) {
	query := f.client.Collection(f.collection).Query
	if prefix != "" {
		query = query.Where("key", ">=", prefix).Where("key", "<", prefix+"\uf8ff")
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	result := make(map[string]string)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate settings with prefix %q: %w", prefix, err)
		}

		var s setting
		if err := doc.DataTo(&s); err != nil {
			return nil, fmt.Errorf("failed to parse setting %s: %w", doc.Ref.ID, err)
		}
		result[s.Key] = s.Value
	}
	return result, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}
