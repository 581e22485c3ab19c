package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxRunner runs fn inside a multi-document transaction. Transactions need a
// replica set; with enabled=false fn runs directly and the reconciler repairs
// any partial write.
type TxRunner struct {
	client  *mongo.Client
	enabled bool
}

func NewTxRunner(client *mongo.Client, enabled bool) *TxRunner {
	return &TxRunner{client: client, enabled: enabled}
}

func (r *TxRunner) Transactional() bool { return r.enabled }

func (r *TxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !r.enabled {
		return fn(ctx)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
