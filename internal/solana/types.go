package solana

// Transaction is a confirmed transaction with the metadata this engine
// needs: logs, fee, lamport balance deltas, token balance deltas and
// compiled top-level instructions.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta is the post-execution metadata of a transaction.
type TransactionMeta struct {
	Err         interface{}
	Fee         uint64
	LogMessages []string
	// PreBalances and PostBalances are lamport balances indexed like
	// Message.AccountKeys.
	PreBalances  []uint64
	PostBalances []uint64
	// PreTokenBalances and PostTokenBalances are SPL token balances
	// before/after execution.
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TokenBalance is one account's SPL token balance within transaction meta.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       TokenAmount
}

// TokenAmount is a raw token amount with its decimal scale.
type TokenAmount struct {
	Amount   string  `json:"amount"`
	Decimals int     `json:"decimals"`
	UIAmount float64 `json:"uiAmount"`
}

// TransactionMessage is the compiled message of a transaction.
type TransactionMessage struct {
	AccountKeys []string
	// Instructions are the top-level compiled instructions; indices refer
	// into AccountKeys.
	Instructions []CompiledInstruction
}

// CompiledInstruction is one top-level instruction.
type CompiledInstruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"`
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       string // base64 encoded
	Executable bool
	RentEpoch  uint64
}

// ProgramAccount is one account returned by getProgramAccounts.
type ProgramAccount struct {
	Pubkey  string
	Account AccountInfo
}

// MemcmpFilter matches accounts whose data at Offset equals the
// base58-encoded Bytes.
type MemcmpFilter struct {
	Offset int
	Bytes  string
}

// DataSlice limits returned account data to [Offset, Offset+Length).
type DataSlice struct {
	Offset int
	Length int
}

// ProgramAccountsOpts configures getProgramAccounts.
type ProgramAccountsOpts struct {
	Memcmp    []MemcmpFilter
	DataSlice *DataSlice
}

// TokenAccountBalance is one entry from getTokenLargestAccounts.
type TokenAccountBalance struct {
	Address  string
	Amount   string
	Decimals int
	UIAmount float64
}

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// LogsFilter selects which transaction logs a subscription receives.
type LogsFilter struct {
	// Mentions restricts notifications to transactions referencing any of
	// these addresses. Empty subscribes to all logs.
	Mentions []string
}

// LogNotification is one logsNotification message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
