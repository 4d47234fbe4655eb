package ledger

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

func TestValidAddress(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", true},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", true},
		{"5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", false},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1bea", false},
		{"0xzzzeb6053f3e94c9b9a09f33669435e7ef1beaed", false},
		{"", false},
	}
	for _, c := range cases {
		if got := ValidAddress(c.in); got != c.want {
			t.Fatalf("ValidAddress(%q): expected %v, got %v", c.in, c.want, got)
		}
	}
}

func TestParseEther(t *testing.T) {
	wei, err := ParseEther("0.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wei.String() != "500000000000000000" {
		t.Fatalf("expected 5e17 wei, got %s", wei)
	}

	for _, bad := range []string{"", "abc", "0", "-1", "0.0000000000000000001"} {
		if _, err := ParseEther(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFormatEther(t *testing.T) {
	cases := map[string]string{
		"0":                     "0",
		"1000000000000000000":   "1",
		"1500000000000000000":   "1.5",
		"1":                     "0.000000000000000001",
		"123456789000000000000": "123.456789",
	}
	for in, want := range cases {
		v, _ := new(big.Int).SetString(in, 10)
		if got := FormatEther(v); got != want {
			t.Fatalf("FormatEther(%s): expected %s, got %s", in, want, got)
		}
	}
}

func writeKeystore(t *testing.T, password string, asArray bool) (string, *keystore.Key) {
	t.Helper()
	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	key := &keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(pk.PublicKey),
		PrivateKey: pk,
	}
	data, err := keystore.EncryptKey(key, password, keystore.LightScryptN, keystore.LightScryptP)
	if err != nil {
		t.Fatalf("encrypt key: %v", err)
	}
	if asArray {
		data, _ = json.Marshal([]json.RawMessage{data})
	}
	path := filepath.Join(t.TempDir(), "faucet_account")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write keystore: %v", err)
	}
	return path, key
}

func TestLoadKey_SingleAndArray(t *testing.T) {
	for _, asArray := range []bool{false, true} {
		path, want := writeKeystore(t, "secret", asArray)
		got, err := LoadKey(path, "secret")
		if err != nil {
			t.Fatalf("asArray=%v: unexpected error: %v", asArray, err)
		}
		if got.Address != want.Address {
			t.Fatalf("asArray=%v: expected %s, got %s", asArray, want.Address.Hex(), got.Address.Hex())
		}
	}
}

func TestLoadKey_WrongPassword(t *testing.T) {
	path, _ := writeKeystore(t, "secret", false)
	if _, err := LoadKey(path, "nope"); err == nil {
		t.Fatalf("expected decrypt error")
	}
}

// rpcStub answers the handful of read-only JSON-RPC calls the client makes.
func rpcStub(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, ok := results[req.Method]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]any{"code": -32601, "message": "method not found"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
}

func TestEthClient_Reads(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"eth_chainId":     "0x539",
		"eth_blockNumber": "0x10",
		"eth_getBalance":  "0x14d1120d7b160000",
	})
	defer srv.Close()

	pk, _ := crypto.GenerateKey()
	c, err := Dial(context.Background(), srv.URL, pk)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if c.ChainID().Int64() != 1337 {
		t.Fatalf("expected chain id 1337, got %s", c.ChainID())
	}
	if c.Account() != crypto.PubkeyToAddress(pk.PublicKey).Hex() {
		t.Fatalf("unexpected account %s", c.Account())
	}
	n, err := c.BlockNumber(context.Background())
	if err != nil || n != 16 {
		t.Fatalf("expected block 16, got %d err=%v", n, err)
	}
	bal, err := c.Balance(context.Background())
	if err != nil || bal != "1.5" {
		t.Fatalf("expected balance 1.5, got %q err=%v", bal, err)
	}
}

func TestEthClient_TransferRejectsInvalidAddress(t *testing.T) {
	srv := rpcStub(t, map[string]string{"eth_chainId": "0x1"})
	defer srv.Close()

	pk, _ := crypto.GenerateKey()
	c, err := Dial(context.Background(), srv.URL, pk)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if _, err := c.Transfer(context.Background(), "not-an-address", big.NewInt(1)); err == nil {
		t.Fatalf("expected invalid address error")
	}
}
