package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

//go:generate mockgen -source=rpc.go -destination=mock_rpc.go -package=chain

// RPCClient returns nil without error when the node does not know the signature.
type RPCClient interface {
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

type Caller interface {
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

type rpcClient struct {
	caller Caller
}

func NewRPCClient(caller Caller) RPCClient {
	return &rpcClient{caller: caller}
}

func (c *rpcClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	raw, err := c.caller.Call(ctx, "getTransaction", signature, map[string]any{
		"encoding":                       "jsonParsed",
		"commitment":                     "confirmed",
		"maxSupportedTransactionVersion": 0,
	})
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	var tx Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &tx, nil
}
