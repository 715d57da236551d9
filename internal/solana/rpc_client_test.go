package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClient_GetTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "getTransaction" {
			t.Errorf("expected method getTransaction, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"slot":      int64(123456),
				"blockTime": int64(1700000000),
				"meta": map[string]interface{}{
					"err":          nil,
					"fee":          uint64(505000),
					"logMessages":  []string{"Program log: Hello"},
					"preBalances":  []uint64{1000000, 0},
					"postBalances": []uint64{900000, 100000},
					"preTokenBalances": []map[string]interface{}{},
					"postTokenBalances": []map[string]interface{}{
						{
							"accountIndex": 1,
							"mint":         "MintAddr111",
							"owner":        "OwnerAddr111",
							"uiTokenAmount": map[string]interface{}{
								"amount":   "5000",
								"decimals": 6,
								"uiAmount": 0.005,
							},
						},
					},
				},
				"transaction": map[string]interface{}{
					"message": map[string]interface{}{
						"accountKeys": []string{"addr1", "addr2"},
						"instructions": []map[string]interface{}{
							{
								"programIdIndex": 1,
								"accounts":       []int{0, 1},
								"data":           "abc",
							},
						},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	tx, err := client.GetTransaction(ctx, "testsig123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx == nil {
		t.Fatal("expected transaction, got nil")
	}

	if tx.Slot != 123456 {
		t.Errorf("expected slot 123456, got %d", tx.Slot)
	}
	if tx.Meta == nil {
		t.Fatal("expected meta, got nil")
	}
	if tx.Meta.Fee != 505000 {
		t.Errorf("expected fee 505000, got %d", tx.Meta.Fee)
	}
	if len(tx.Meta.PostBalances) != 2 || tx.Meta.PostBalances[1] != 100000 {
		t.Errorf("unexpected postBalances: %v", tx.Meta.PostBalances)
	}
	if len(tx.Meta.PostTokenBalances) != 1 {
		t.Fatalf("expected 1 postTokenBalance, got %d", len(tx.Meta.PostTokenBalances))
	}
	if tx.Meta.PostTokenBalances[0].Mint != "MintAddr111" {
		t.Errorf("unexpected mint: %s", tx.Meta.PostTokenBalances[0].Mint)
	}
	if tx.Meta.PostTokenBalances[0].Amount.Amount != "5000" {
		t.Errorf("unexpected raw amount: %s", tx.Meta.PostTokenBalances[0].Amount.Amount)
	}
	if tx.Message == nil || len(tx.Message.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %+v", tx.Message)
	}
	if tx.Message.Instructions[0].ProgramIDIndex != 1 {
		t.Errorf("unexpected programIdIndex: %d", tx.Message.Instructions[0].ProgramIDIndex)
	}
}

func TestHTTPClient_GetTransaction_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  nil,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	tx, err := client.GetTransaction(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx != nil {
		t.Errorf("expected nil for not found, got %+v", tx)
	}
}

func TestHTTPClient_GetProgramAccounts_Filters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "getProgramAccounts" {
			t.Errorf("expected getProgramAccounts, got %s", req.Method)
		}

		// Verify memcmp + dataSlice made it onto the wire.
		config, ok := req.Params[1].(map[string]interface{})
		if !ok {
			t.Fatalf("expected config object, got %T", req.Params[1])
		}
		if _, ok := config["filters"]; !ok {
			t.Error("expected filters in config")
		}
		slice, ok := config["dataSlice"].(map[string]interface{})
		if !ok || slice["length"] != float64(80) {
			t.Errorf("expected dataSlice length 80, got %v", config["dataSlice"])
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": []map[string]interface{}{
				{
					"pubkey": "TokenAcc111",
					"account": map[string]interface{}{
						"lamports": 2039280,
						"owner":    "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
						"data":     []string{"aGVsbG8=", "base64"},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	accounts, err := client.GetProgramAccounts(context.Background(),
		"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		&ProgramAccountsOpts{
			Memcmp:    []MemcmpFilter{{Offset: 0, Bytes: "SomeMint111"}},
			DataSlice: &DataSlice{Offset: 0, Length: 80},
		})
	if err != nil {
		t.Fatalf("GetProgramAccounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
	if accounts[0].Pubkey != "TokenAcc111" {
		t.Errorf("unexpected pubkey: %s", accounts[0].Pubkey)
	}
	if accounts[0].Account.Data != "aGVsbG8=" {
		t.Errorf("unexpected data: %s", accounts[0].Account.Data)
	}
}

func TestHTTPClient_GetTokenSupply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": map[string]interface{}{
					"amount":   "1000000000000",
					"decimals": 6,
					"uiAmount": 1000000.0,
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	supply, err := client.GetTokenSupply(context.Background(), "SomeMint111")
	if err != nil {
		t.Fatalf("GetTokenSupply: %v", err)
	}
	if supply == nil {
		t.Fatal("expected supply, got nil")
	}
	if supply.Amount != "1000000000000" || supply.Decimals != 6 {
		t.Errorf("unexpected supply: %+v", supply)
	}
}

func TestHTTPClient_GetTokenLargestAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getTokenLargestAccounts" {
			t.Errorf("expected getTokenLargestAccounts, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": []map[string]interface{}{
					{"address": "acc1", "amount": "900", "decimals": 6, "uiAmount": 0.0009},
					{"address": "acc2", "amount": "100", "decimals": 6, "uiAmount": 0.0001},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	balances, err := client.GetTokenLargestAccounts(context.Background(), "SomeMint111")
	if err != nil {
		t.Fatalf("GetTokenLargestAccounts: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	if balances[0].Address != "acc1" || balances[0].Amount != "900" {
		t.Errorf("unexpected first balance: %+v", balances[0])
	}
}

func TestHTTPClient_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(42),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(10*time.Millisecond))

	slot, err := client.GetSlot(context.Background())
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if slot != 42 {
		t.Errorf("expected slot 42, got %d", slot)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls (1 retry), got %d", calls.Load())
	}
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32602, "message": "Invalid param"},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(10*time.Millisecond))

	_, err := client.GetSlot(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("RPC errors must not be retried, got %d calls", calls.Load())
	}
}
