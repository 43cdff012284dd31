package chain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const parsedTransaction = `{
  "slot": 301,
  "meta": {
    "err": null,
    "fee": 5000,
    "preBalances": [3000000000, 0, 1],
    "postBalances": [999995000, 2000000000, 1],
    "preTokenBalances": [],
    "postTokenBalances": [],
    "innerInstructions": []
  },
  "transaction": {
    "signatures": ["5h6xBEauJ3PK6SWCZ1PGjBvj8vDdWG3KpwATGy1ARAXFSDwt8GFXM7W5Ncn16wmqokgpiKRLuS83KUxyZyv2sUYv"],
    "message": {
      "accountKeys": [
        {"pubkey": "DepositorWallet111111111111111111111111111", "signer": true, "writable": true, "source": "transaction"},
        {"pubkey": "PlatformWallet1111111111111111111111111111", "signer": false, "writable": true, "source": "transaction"},
        {"pubkey": "11111111111111111111111111111111", "signer": false, "writable": false, "source": "transaction"}
      ],
      "instructions": [
        {
          "program": "system",
          "programId": "11111111111111111111111111111111",
          "parsed": {"type": "transfer", "info": {"source": "DepositorWallet111111111111111111111111111", "destination": "PlatformWallet1111111111111111111111111111", "lamports": 2000000000}},
          "stackHeight": null
        },
        {
          "program": "spl-memo",
          "programId": "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr",
          "parsed": "solyield deposit",
          "stackHeight": null
        }
      ]
    }
  }
}`

func TestRPCClient_GetTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	caller := NewMockCaller(ctrl)
	client := NewRPCClient(caller)

	tests := []struct {
		name        string
		prepareMock func()
		expectNil   bool
		expectError bool
	}{
		{
			name: "Parsed transaction",
			prepareMock: func() {
				caller.EXPECT().Call(gomock.Any(), "getTransaction", "sig", gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, params ...any) (json.RawMessage, error) {
						opts := params[1].(map[string]any)
						assert.Equal(t, "jsonParsed", opts["encoding"])
						assert.Equal(t, "confirmed", opts["commitment"])
						assert.Equal(t, 0, opts["maxSupportedTransactionVersion"])
						return json.RawMessage(parsedTransaction), nil
					})
			},
		},
		{
			name: "Unknown signature",
			prepareMock: func() {
				caller.EXPECT().Call(gomock.Any(), "getTransaction", "sig", gomock.Any()).Return(json.RawMessage("null"), nil)
			},
			expectNil: true,
		},
		{
			name: "Transport error",
			prepareMock: func() {
				caller.EXPECT().Call(gomock.Any(), "getTransaction", "sig", gomock.Any()).Return(nil, errors.New("boom"))
			},
			expectError: true,
		},
		{
			name: "Malformed result",
			prepareMock: func() {
				caller.EXPECT().Call(gomock.Any(), "getTransaction", "sig", gomock.Any()).Return(json.RawMessage(`{"meta":[]}`), nil)
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			res, err := client.GetTransaction(context.Background(), "sig")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.expectNil {
				assert.Nil(t, res)
				return
			}
			require.NotNil(t, res)
			assert.False(t, res.Meta.Failed())
			assert.Len(t, res.Transaction.Message.Instructions, 2)
			assert.True(t, res.Transaction.Message.AccountKeys[0].Signer)

			v := &Verifier{platform: platform}
			assert.Equal(t, []uint64{2_000_000_000}, v.nativeTransfers(res))
		})
	}
}
