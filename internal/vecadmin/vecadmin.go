// Package vecadmin administers the managed vector-database collection that
// mirrors the corpus. Only the administrative surface (ensure/drop) lives
// here; the search path never touches the managed database.
package vecadmin

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client manages a single named collection over Qdrant's gRPC API.
type Client struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	collection  string
}

// New connects to Qdrant at the given gRPC address.
func New(addr, collection string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("vecadmin: dial qdrant %s: %w", addr, err)
	}
	return &Client{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Exists reports whether the collection is present.
func (c *Client) Exists(ctx context.Context) (bool, error) {
	list, err := c.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("vecadmin: list collections: %w", err)
	}
	for _, col := range list.GetCollections() {
		if col.GetName() == c.collection {
			return true, nil
		}
	}
	return false, nil
}

// Ensure creates the collection with the given vector dimension if it does
// not exist yet.
func (c *Client) Ensure(ctx context.Context, dims int) error {
	exists, err := c.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = c.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Euclid,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vecadmin: create collection %s: %w", c.collection, err)
	}
	return nil
}

// Drop deletes the collection. Dropping a missing collection is not an error
// on the Qdrant side.
func (c *Client) Drop(ctx context.Context) error {
	_, err := c.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: c.collection,
	})
	if err != nil {
		return fmt.Errorf("vecadmin: delete collection %s: %w", c.collection, err)
	}
	return nil
}
