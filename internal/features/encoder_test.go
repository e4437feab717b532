package features

import (
	"errors"
	"reflect"
	"testing"

	"finadvisor/internal/core"
)

func mustTx(t *testing.T, merchant string) core.Transaction {
	t.Helper()
	tx, err := core.NewTransaction(core.Money{Cents: 10000}, 15, 2, 14, core.Money{Cents: 50000}, merchant)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	return tx
}

func TestEncode_FullOneHot(t *testing.T) {
	schema := DefaultSchema()

	for i, m := range schema.Merchants {
		t.Run(m, func(t *testing.T) {
			v, err := Encode(mustTx(t, m), schema)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if v.Len() != 11 {
				t.Fatalf("Encode() length = %d, want 11", v.Len())
			}
			wantPrefix := []float64{100, 15, 2, 14, 500}
			if !reflect.DeepEqual(v.Values[:5], wantPrefix) {
				t.Errorf("numeric segment = %v, want %v", v.Values[:5], wantPrefix)
			}
			set := 0
			for j, x := range v.Values[5:] {
				if x == 1 {
					set++
					if j != i {
						t.Errorf("bit set at %d, want %d", j, i)
					}
				} else if x != 0 {
					t.Errorf("one-hot value %v at %d", x, j)
				}
			}
			if set != 1 {
				t.Errorf("one-hot segment has %d set bits, want 1", set)
			}

			again, _ := Encode(mustTx(t, m), schema)
			if !reflect.DeepEqual(v, again) {
				t.Errorf("Encode() is not deterministic: %v vs %v", v, again)
			}
		})
	}
}

func TestEncode_DropFirst(t *testing.T) {
	schema := Schema{Version: "v1-drop", Merchants: DefaultMerchants(), Encoding: OneHotDropFirst}

	if schema.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", schema.Len())
	}
	ref, ok := schema.ReferenceMerchant()
	if !ok || ref != "Amazon" {
		t.Fatalf("ReferenceMerchant() = %q, %v", ref, ok)
	}

	v, err := Encode(mustTx(t, "Amazon"), schema)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	for j, x := range v.Values[5:] {
		if x != 0 {
			t.Errorf("reference merchant has bit %d set", j)
		}
	}

	v, err = Encode(mustTx(t, "Walmart"), schema)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if v.Values[len(v.Values)-1] != 1 {
		t.Errorf("Walmart column not set: %v", v.Values)
	}
	if v.Fields[5] != "mch_Employer" {
		t.Errorf("first one-hot field = %q, want mch_Employer", v.Fields[5])
	}
}

func TestEncode_UnknownMerchant(t *testing.T) {
	for _, schema := range []Schema{
		DefaultSchema(),
		{Version: "v1-drop", Merchants: DefaultMerchants(), Encoding: OneHotDropFirst},
	} {
		for _, m := range []string{"Target", "amazon", "Costco"} {
			_, err := Encode(mustTx(t, m), schema)
			if !errors.Is(err, core.ErrUnknownCategory) {
				t.Errorf("Encode(%q, %s) error = %v, want ErrUnknownCategory", m, schema.Encoding, err)
			}
		}
	}
}

func TestEncode_InvalidTransaction(t *testing.T) {
	tx := core.Transaction{Amount: core.Money{Cents: -5}, DayOfMonth: 1, Merchant: "Amazon"}
	if _, err := Encode(tx, DefaultSchema()); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Encode() error = %v, want ErrInvalidAmount", err)
	}
}

func TestCheckSchema(t *testing.T) {
	full := DefaultSchema()
	drop := Schema{Version: "v1-drop", Merchants: DefaultMerchants(), Encoding: OneHotDropFirst}

	v, err := Encode(mustTx(t, "Netflix"), full)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := CheckSchema(v, full); err != nil {
		t.Fatalf("CheckSchema(full) = %v", err)
	}
	if err := CheckSchema(v, drop); !errors.Is(err, core.ErrSchemaMismatch) {
		t.Fatalf("CheckSchema(drop) = %v, want ErrSchemaMismatch", err)
	}

	// Same version, different layout.
	drop.Version = full.Version
	if err := CheckSchema(v, drop); !errors.Is(err, core.ErrSchemaMismatch) {
		t.Fatalf("CheckSchema(drop same version) = %v, want ErrSchemaMismatch", err)
	}
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr bool
	}{
		{"default", DefaultSchema(), false},
		{"no version", Schema{Merchants: []string{"A"}, Encoding: OneHot}, true},
		{"unknown encoding", Schema{Version: "v", Merchants: []string{"A"}, Encoding: "ordinal"}, true},
		{"duplicate merchant", Schema{Version: "v", Merchants: []string{"A", "A"}, Encoding: OneHot}, true},
		{"drop-first single", Schema{Version: "v", Merchants: []string{"A"}, Encoding: OneHotDropFirst}, true},
		{"empty merchant", Schema{Version: "v", Merchants: []string{"A", " "}, Encoding: OneHot}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaults_ReturnCopies(t *testing.T) {
	m := DefaultMerchants()
	m[0] = "Mutated"
	if got := DefaultMerchants()[0]; got != "Amazon" {
		t.Errorf("DefaultMerchants()[0] = %q after caller mutation, want Amazon", got)
	}
	if got := DefaultSchema().Merchants[0]; got != "Amazon" {
		t.Errorf("DefaultSchema().Merchants[0] = %q, want Amazon", got)
	}

	f := NumericFields()
	f[0] = "mutated"
	if got := DefaultSchema().Fields()[0]; got != FieldAmount {
		t.Errorf("Fields()[0] = %q after caller mutation, want %q", got, FieldAmount)
	}
}
