package widget

import "sync"

// FormBinding backs the classic checkout form: the widget mounts into a
// container and the confirm result lands in hidden form fields.
type FormBinding struct {
	mu      sync.Mutex
	mounted bool
	seed    Seed
	fields  map[string]string
	lastErr string
}

func NewFormBinding() *FormBinding {
	return &FormBinding{fields: map[string]string{}}
}

func (b *FormBinding) Mount(seed Seed) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mounted = true
	b.seed = seed
	b.lastErr = ""
}

func (b *FormBinding) Unmount() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mounted = false
	b.seed = Seed{}
	b.fields = map[string]string{}
}

func (b *FormBinding) Populate(fields Fields) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fields["monmi_payment_token"] = fields.Token
	b.fields["monmi_payment_code"] = fields.Code
	b.fields["monmi_payment_status"] = fields.Status
	b.fields["monmi_payment_payload"] = fields.Payload
}

func (b *FormBinding) ShowError(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastErr = message
	b.fields = map[string]string{}
}

// Mounted reports whether the widget container is active.
func (b *FormBinding) Mounted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mounted
}

// HiddenFields returns a copy of the populated submission fields.
func (b *FormBinding) HiddenFields() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.fields))
	for k, v := range b.fields {
		out[k] = v
	}
	return out
}

// LastError returns the most recent shopper-facing error, empty when none.
func (b *FormBinding) LastError() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// BlockBinding backs the component-based checkout block: state changes are
// pushed to the host component through callbacks instead of form fields.
type BlockBinding struct {
	OnMount    func(Seed)
	OnUnmount  func()
	OnPopulate func(Fields)
	OnError    func(string)
}

func (b *BlockBinding) Mount(seed Seed) {
	if b.OnMount != nil {
		b.OnMount(seed)
	}
}

func (b *BlockBinding) Unmount() {
	if b.OnUnmount != nil {
		b.OnUnmount()
	}
}

func (b *BlockBinding) Populate(fields Fields) {
	if b.OnPopulate != nil {
		b.OnPopulate(fields)
	}
}

func (b *BlockBinding) ShowError(message string) {
	if b.OnError != nil {
		b.OnError(message)
	}
}
