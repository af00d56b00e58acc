// Package gas implements the bounded gas accounting used by every
// transaction the execution core runs: a fixed per-operation cost table,
// a saturating counter, and budget-exceeded detection.
package gas

import (
	"github.com/holiman/uint256"

	"github.com/kanari-network/kanari-core/internal/errs"
)

// Operation tags one chargeable unit of VM work.
type Operation int

const (
	OpLoadModule Operation = iota
	OpExecuteInstruction
	OpStorageRead
	OpStorageWrite
	OpPublishModuleByte
	OpTransfer
	OpFunctionCall
)

// costTable is the fixed-at-compile-time cost, in gas units, of each
// Operation. Matches spec §4.1 verbatim.
var costTable = map[Operation]uint64{
	OpLoadModule:         100,
	OpExecuteInstruction: 1,
	OpStorageRead:        10,
	OpStorageWrite:       50,
	OpPublishModuleByte:  5,
	OpTransfer:           1000,
	OpFunctionCall:       500,
}

// Cost returns the fixed cost of op.
func Cost(op Operation) uint64 {
	return costTable[op]
}

// Meter is a bounded arithmetic counter owned exclusively by one VM
// invocation (spec §5). It enforces the gas_limit budget (in gas units;
// gas_price only enters CostInFeeUnits) using
// saturating/overflow-checked arithmetic so a malicious or buggy cost
// computation can never wrap the running total.
type Meter struct {
	limit uint64
	price uint64
	used  uint64
}

// New constructs a Meter for a single transaction's (gas_limit, gas_price).
func New(limit, price uint64) *Meter {
	return &Meter{limit: limit, price: price}
}

// Charge deducts op's cost from the remaining budget. It returns a
// *errs.DomainError with Kind errs.KindGasExceeded if the running total
// would exceed the gas limit; the meter's used() still reflects the full
// limit in that case, matching the "failed path still consumes gas" rule
// in spec §7.
func (m *Meter) Charge(op Operation) error {
	return m.ChargeAmount(Cost(op))
}

// ChargeAmount deducts an explicit amount, e.g. for publish-module-per-byte
// or execute-instruction-per-unit costs that scale with input size.
func (m *Meter) ChargeAmount(amount uint64) error {
	next, overflow := addOverflow(m.used, amount)
	if overflow || next > m.limit {
		m.used = m.limit
		return errs.New(errs.KindGasExceeded, "gas limit %d exceeded", m.limit).
			WithContext("limit", m.limit, "used", m.used, "requested", amount)
	}
	m.used = next
	return nil
}

// Used reports the amount of gas consumed so far.
func (m *Meter) Used() uint64 {
	return m.used
}

// Limit reports the configured gas limit.
func (m *Meter) Limit() uint64 {
	return m.limit
}

// Price reports the configured gas price.
func (m *Meter) Price() uint64 {
	return m.price
}

// CostInFeeUnits computes used() × gas_price with overflow-safe
// multiplication; on overflow the result saturates to the maximum u128
// value rather than wrapping, per spec §4.1. Matches the teacher's own
// *uint256.Int fee arithmetic in core/state_transition.go's buyGas.
func (m *Meter) CostInFeeUnits() *uint256.Int {
	used := uint256.NewInt(m.used)
	price := uint256.NewInt(m.price)
	product := new(uint256.Int).Mul(used, price)
	if product.Cmp(maxU128) > 0 {
		return new(uint256.Int).Set(maxU128)
	}
	return product
}

var maxU128 = func() *uint256.Int {
	v := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	return v.Sub(v, uint256.NewInt(1))
}()

func addOverflow(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum < a
}
