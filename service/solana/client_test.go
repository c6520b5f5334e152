package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRPCClient implements RPCClient for testing.
// It's behavior-focused: we set what it should return, not verify call sequences.
type mockRPCClient struct {
	signatures []*rpc.TransactionSignature
	sigErr     error

	details   map[string]*TransactionDetail
	detailErr error

	accounts    rpc.GetProgramAccountsResult
	accountsErr error
}

func (m *mockRPCClient) GetSignaturesForAddressWithOpts(
	ctx context.Context,
	address solanago.PublicKey,
	opts *rpc.GetSignaturesForAddressOpts,
) ([]*rpc.TransactionSignature, error) {
	if m.sigErr != nil {
		return nil, m.sigErr
	}
	return m.signatures, nil
}

func (m *mockRPCClient) RPCCallForInto(ctx context.Context, out any, name string, params []any) error {
	if m.detailErr != nil {
		return m.detailErr
	}
	sig, _ := params[0].(string)
	if detail, ok := m.details[sig]; ok {
		*(out.(**TransactionDetail)) = detail
	}
	return nil
}

func (m *mockRPCClient) GetProgramAccountsWithOpts(
	ctx context.Context,
	program solanago.PublicKey,
	opts *rpc.GetProgramAccountsOpts,
) (rpc.GetProgramAccountsResult, error) {
	if m.accountsErr != nil {
		return nil, m.accountsErr
	}
	return m.accounts, nil
}

func newTestClient(mock *mockRPCClient) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(mock, "test", nil, logger)
}

const testAddress = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"

func TestIsThrottled(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrThrottled, true},
		{"wrapped sentinel", fmt.Errorf("list: %w", ErrThrottled), true},
		{"http status text", errors.New("429 Too Many Requests"), true},
		{"other error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsThrottled(tt.err))
		})
	}
}

func TestListRecentSignatures(t *testing.T) {
	sig1 := solanago.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")
	sig2 := solanago.MustSignatureFromBase58("2TgM4N8qCMqLvfR8dxqTQgKygPNzT5KQkN5b5sT7eZPEkdxyLTXGnNQB3j7KG4DPFg5Qez5yNJBQRQ5r7DDnFfjG")

	blockTime := solanago.UnixTimeSeconds(time.Now().Unix())
	mock := &mockRPCClient{
		signatures: []*rpc.TransactionSignature{
			{Signature: sig1, Slot: 100, BlockTime: &blockTime},
			{Signature: sig2, Slot: 99},
		},
	}

	client := newTestClient(mock)
	infos, err := client.ListRecentSignatures(context.Background(), testAddress, 10)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, sig1.String(), infos[0].Signature)
	assert.Equal(t, uint64(100), infos[0].Slot)
	require.NotNil(t, infos[0].BlockTime)
	assert.Equal(t, int64(blockTime), *infos[0].BlockTime)

	assert.Equal(t, sig2.String(), infos[1].Signature)
	assert.Nil(t, infos[1].BlockTime)
}

func TestListRecentSignatures_InvalidAddress(t *testing.T) {
	client := newTestClient(&mockRPCClient{})
	_, err := client.ListRecentSignatures(context.Background(), "not-base58!", 10)
	assert.Error(t, err)
}

func TestListRecentSignatures_Throttled(t *testing.T) {
	mock := &mockRPCClient{sigErr: errors.New("429 Too Many Requests")}
	client := newTestClient(mock)

	_, err := client.ListRecentSignatures(context.Background(), testAddress, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrThrottled)
}

func TestGetTransactionDetail(t *testing.T) {
	blockTime := int64(1717171717)
	mock := &mockRPCClient{
		details: map[string]*TransactionDetail{
			"known-sig": {
				Slot:      123,
				BlockTime: &blockTime,
				Meta:      &TransactionMeta{Fee: 5000},
			},
		},
	}

	client := newTestClient(mock)

	detail, err := client.GetTransactionDetail(context.Background(), "known-sig")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, uint64(123), detail.Slot)
	assert.Equal(t, blockTime*1000, detail.BlockTimeMillis())

	// Unknown signatures decode to nil without error.
	detail, err = client.GetTransactionDetail(context.Background(), "unknown-sig")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestGetTransactionDetail_Throttled(t *testing.T) {
	mock := &mockRPCClient{detailErr: errors.New("429 Too Many Requests")}
	client := newTestClient(mock)

	_, err := client.GetTransactionDetail(context.Background(), "sig")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrThrottled)
}

// tokenAccountData builds raw SPL token account bytes with the owner and
// amount at their fixed offsets.
func tokenAccountData(t *testing.T, owner solanago.PublicKey, amount uint64) *rpc.DataBytesOrJSON {
	t.Helper()

	raw := make([]byte, tokenAccountSize)
	copy(raw[tokenAccountOwner:tokenAccountOwner+32], owner.Bytes())
	binary.LittleEndian.PutUint64(raw[tokenAccountAmount:tokenAccountAmount+8], amount)

	encoded := base64.StdEncoding.EncodeToString(raw)
	var data rpc.DataBytesOrJSON
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(`[%q, "base64"]`, encoded)), &data))
	return &data
}

func TestFetchTopHolders(t *testing.T) {
	ownerA := solanago.MustPublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	ownerB := solanago.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")

	mock := &mockRPCClient{
		accounts: rpc.GetProgramAccountsResult{
			{Account: &rpc.Account{Data: tokenAccountData(t, ownerA, 5_000_000_000)}},
			// A second account for the same owner aggregates.
			{Account: &rpc.Account{Data: tokenAccountData(t, ownerA, 1_000_000_000)}},
			{Account: &rpc.Account{Data: tokenAccountData(t, ownerB, 3_000_000_000)}},
			// Zero-balance accounts are excluded.
			{Account: &rpc.Account{Data: tokenAccountData(t, ownerB, 0)}},
		},
	}

	client := newTestClient(mock)
	holders, err := client.FetchTopHolders(context.Background(), testAddress, 10)
	require.NoError(t, err)
	require.Len(t, holders, 2)

	assert.Equal(t, ownerA.String(), holders[0].Address)
	assert.Equal(t, 6.0, holders[0].Balance)
	assert.Equal(t, ownerB.String(), holders[1].Address)
	assert.Equal(t, 3.0, holders[1].Balance)
}

func TestFetchTopHolders_Truncates(t *testing.T) {
	ownerA := solanago.MustPublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	ownerB := solanago.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")

	mock := &mockRPCClient{
		accounts: rpc.GetProgramAccountsResult{
			{Account: &rpc.Account{Data: tokenAccountData(t, ownerA, 2_000_000_000)}},
			{Account: &rpc.Account{Data: tokenAccountData(t, ownerB, 9_000_000_000)}},
		},
	}

	client := newTestClient(mock)
	holders, err := client.FetchTopHolders(context.Background(), testAddress, 1)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, ownerB.String(), holders[0].Address)
}
