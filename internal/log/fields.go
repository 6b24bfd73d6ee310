package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldAccount   = "account"
	FieldRecipient = "recipient"
	FieldAmount    = "amount"
	FieldBalance   = "balance"
	FieldCategory  = "category"
	FieldTxType    = "tx_type"
	FieldMonth     = "month"
	FieldEventID   = "event_id"
	FieldPath      = "path"
	FieldBackend   = "backend"
	FieldDuration  = "duration_ms"
	FieldAttempt   = "attempt"
	FieldSuccess   = "success"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentAudit   = "audit"
	ComponentSummary = "summary"
	ComponentCache   = "cache"
	ComponentCLI     = "cli"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpLogin     = "login"
	OpDeposit   = "deposit"
	OpWithdraw  = "withdraw"
	OpTransfer  = "transfer"
	OpProfile   = "profile"
	OpHistory   = "history"
	OpSummary   = "summary"
	OpReconcile = "reconcile"
	OpPublish   = "publish"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeStorage       = "storage_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithAccount adds the account number and, when known, its balance.
func (f LogFields) WithAccount(number string, balance string) LogFields {
	f[FieldAccount] = number
	if balance != "" {
		f[FieldBalance] = balance
	}
	return f
}

// WithMovement adds the fields describing a single money movement
func (f LogFields) WithMovement(txType, amount, category string) LogFields {
	f[FieldTxType] = txType
	f[FieldAmount] = amount
	f[FieldCategory] = category
	return f
}

func (f LogFields) WithRecipient(number string) LogFields {
	f[FieldRecipient] = number
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
