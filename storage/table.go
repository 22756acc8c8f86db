package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
)

// TableBlobStore keeps each blob as a single table entity whose Payload
// property holds the serialized text. The namespace key doubles as both
// partition and row key, so Save is a plain upsert of one entity.
type TableBlobStore struct {
	table *aztables.Client
}

// NewTableBlobStore creates a store over the named table using the given
// connection string.
func NewTableBlobStore(connStr, tableName string) (*TableBlobStore, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableBlobStore{table: svc.NewClient(tableName)}, nil
}

type blobEntity struct {
	aztables.Entity
	Payload string `json:"Payload"`
}

func (t *TableBlobStore) Load(ctx context.Context, key string) (string, bool, error) {
	resp, err := t.table.GetEntity(ctx, key, key, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return "", false, nil
		}
		return "", false, err
	}
	var ent blobEntity
	if err := sonic.Unmarshal(resp.Value, &ent); err != nil {
		return "", false, err
	}
	return ent.Payload, true, nil
}

func (t *TableBlobStore) Save(ctx context.Context, key, value string) error {
	ent := blobEntity{
		Entity:  aztables.Entity{PartitionKey: key, RowKey: key},
		Payload: value,
	}
	payload, err := sonic.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = t.table.UpsertEntity(ctx, payload, nil)
	return err
}
