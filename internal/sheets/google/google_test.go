package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ports "ezfin/internal/sheets"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), " ", "Ledger", Credentials{ServiceAccountJSON: "{}"})
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_InvalidOAuthClient(t *testing.T) {
	_, err := New(context.Background(), "sheet-id", "Ledger", Credentials{
		OAuthClientJSON: "invalid-json",
		OAuthTokenJSON:  `{"access_token":"test"}`,
	})
	if err == nil {
		t.Fatal("expected error with invalid JSON")
	}
	if !strings.Contains(err.Error(), "oauth config") {
		t.Errorf("expected oauth config error, got: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), "sheet-id", "Ledger", Credentials{OAuthClientJSON: "{}"})
	if err == nil || !strings.Contains(err.Error(), "missing credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestInlineOrFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	if err := os.WriteFile(path, []byte(`{"access_token":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		inline  string
		path    string
		want    string
		wantErr bool
	}{
		{name: "inline wins", inline: ` {"a":1} `, path: path, want: `{"a":1}`},
		{name: "file fallback", path: path, want: `{"access_token":"file"}`},
		{name: "neither", want: ""},
		{name: "missing file", path: filepath.Join(dir, "nope.json"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inlineOrFile(tt.inline, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToStringsKeepsRowPositions(t *testing.T) {
	got := toStrings([][]any{{"id"}, {}, {" tx-2 "}, {42}})
	want := []string{"id", "", "tx-2", "42"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %q, want %q", i, got[i], want[i])
		}
	}
	if indexOf(got, "tx-2") != 2 || indexOf(got, "tx-9") != -1 {
		t.Error("indexOf mismatch")
	}
}

func TestAppendRow_Uninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Ledger"}
	if _, err := c.AppendRow(context.Background(), ports.LedgerRow{TransactionID: "tx-1"}); err == nil {
		t.Fatal("expected error when service is nil")
	}
}
