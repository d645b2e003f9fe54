package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ContractCaller is the slice of the eth client the invoker needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EthCallInvoker performs batched invocations as eth calls against the
// connected ledger node.
type EthCallInvoker struct {
	client ContractCaller
}

var _ Invoker = (*EthCallInvoker)(nil)

func NewEthCallInvoker(client ContractCaller) *EthCallInvoker {
	return &EthCallInvoker{client: client}
}

func (e *EthCallInvoker) Invoke(ctx context.Context, target common.Address, payload []byte) ([]byte, error) {
	ret, err := e.client.CallContract(ctx, ethereum.CallMsg{
		To:   &target,
		Data: payload,
	}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "call to %s", target)
	}
	return ret, nil
}

var _ Invoker = (*MockInvoker)(nil)

// MockInvoker simulates the external-call capability so the state machine
// can be driven through partial batch failure without real execution.
type MockInvoker struct {
	// FailOn aborts the batch when this target is invoked.
	FailOn map[common.Address]error

	// OnInvoke, when set, runs before each simulated call.
	OnInvoke func(target common.Address, payload []byte)

	Invoked []common.Address
}

func NewMockInvoker() *MockInvoker {
	return &MockInvoker{FailOn: make(map[common.Address]error)}
}

func (m *MockInvoker) Invoke(_ context.Context, target common.Address, payload []byte) ([]byte, error) {
	if m.OnInvoke != nil {
		m.OnInvoke(target, payload)
	}
	if err, ok := m.FailOn[target]; ok {
		return nil, err
	}
	m.Invoked = append(m.Invoked, target)
	return nil, nil
}
