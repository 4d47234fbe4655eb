package ledger

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
)

// TransferGas is the gas limit of a plain value transfer.
const TransferGas uint64 = 21000

// EthClient is a Client backed by an Ethereum JSON-RPC endpoint and a single funded key.
type EthClient struct {
	rpc     *ethclient.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

// LoadKey decrypts a keystore file. The file may hold one keystore or a JSON array
// of keystores, in which case the first one is used.
func LoadKey(path, password string) (*keystore.Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("parse keystore array: %w", err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("keystore array %s is empty", path)
		}
		data = list[0]
	}
	key, err := keystore.DecryptKey(data, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return key, nil
}

// Dial connects to rpcURL and resolves the chain id used for signing.
func Dial(ctx context.Context, rpcURL string, key *ecdsa.PrivateKey) (*EthClient, error) {
	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	return &EthClient{
		rpc:     rpc,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

func (c *EthClient) Close() { c.rpc.Close() }

func (c *EthClient) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

func (c *EthClient) Account() string { return c.from.Hex() }

func (c *EthClient) ValidAddress(addr string) bool { return ValidAddress(addr) }

func (c *EthClient) Balance(ctx context.Context) (string, error) {
	wei, err := c.rpc.BalanceAt(ctx, c.from, nil)
	if err != nil {
		return "", fmt.Errorf("balance: %w", err)
	}
	return FormatEther(wei), nil
}

func (c *EthClient) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.rpc.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("block number: %w", err)
	}
	return n, nil
}

// Transfer signs a legacy value transfer, broadcasts it and waits for the receipt.
func (c *EthClient) Transfer(ctx context.Context, to string, amount *big.Int) (string, error) {
	if !ValidAddress(to) {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddress, to)
	}
	nonce, err := c.rpc.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}

	toAddr := common.HexToAddress(to)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    amount,
		Gas:      TransferGas,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	hash := signed.Hash().Hex()
	log.Debug().Str("tx_hash", hash).Uint64("nonce", nonce).Msg("transaction broadcast")

	receipt, err := bind.WaitMined(ctx, c.rpc, signed)
	if err != nil {
		return "", fmt.Errorf("wait mined %s: %w", hash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%w: %s", ErrTxReverted, hash)
	}
	return hash, nil
}
