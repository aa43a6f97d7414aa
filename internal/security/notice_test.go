package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testNoticeSecret = "test_secret_key_minimum_32_chars"

func TestSignAndParseNotice(t *testing.T) {
	tests := []struct {
		name   string
		notice NoticeClaims
	}{
		{
			name:   "Purchase",
			notice: NoticeClaims{Kind: NoticePurchase, UserID: 7, Coins: 50000, Reference: "pi_1"},
		},
		{
			name:   "Cashout settlement",
			notice: NoticeClaims{Kind: NoticeCashoutSettled, UserID: 9, Coins: 250000, Reference: "po_9", CashoutReference: "co_abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := SignNotice(tt.notice, testNoticeSecret, time.Minute)
			if err != nil {
				t.Fatalf("SignNotice() error = %v", err)
			}

			claims, err := ParseNotice(token, testNoticeSecret)
			if err != nil {
				t.Fatalf("ParseNotice() error = %v", err)
			}
			if claims.Kind != tt.notice.Kind || claims.UserID != tt.notice.UserID || claims.Coins != tt.notice.Coins {
				t.Errorf("claims = %+v, want %+v", claims, tt.notice)
			}
			if claims.Reference != tt.notice.Reference || claims.ID != tt.notice.Reference {
				t.Errorf("reference = %q / %q, want %q", claims.Reference, claims.ID, tt.notice.Reference)
			}
		})
	}
}

func TestParseNotice_Rejects(t *testing.T) {
	valid := NoticeClaims{Kind: NoticePurchase, UserID: 1, Coins: 10, Reference: "pi_2"}

	wrongSecret, _ := SignNotice(valid, "another_secret_key_of_32_chars!!", time.Minute)
	expired, _ := SignNotice(valid, testNoticeSecret, -time.Minute)
	noCoins, _ := SignNotice(NoticeClaims{Kind: NoticePurchase, UserID: 1, Reference: "pi_3"}, testNoticeSecret, time.Minute)
	unknownKind, _ := SignNotice(NoticeClaims{Kind: "refund", UserID: 1, Coins: 5, Reference: "pi_4"}, testNoticeSecret, time.Minute)
	cashoutNoRef, _ := SignNotice(NoticeClaims{Kind: NoticeCashoutSettled, UserID: 1, Coins: 5, Reference: "po_5"}, testNoticeSecret, time.Minute)

	noneAlg := jwt.NewWithClaims(jwt.SigningMethodNone, &NoticeClaims{Kind: NoticePurchase, UserID: 1, Coins: 10, Reference: "pi_6"})
	unsigned, _ := noneAlg.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{name: "Empty token", token: ""},
		{name: "Random string", token: "randomstring"},
		{name: "Wrong secret", token: wrongSecret},
		{name: "Expired", token: expired},
		{name: "No coins", token: noCoins},
		{name: "Unknown kind", token: unknownKind},
		{name: "Cashout without reference", token: cashoutNoRef},
		{name: "Unsigned", token: unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseNotice(tt.token, testNoticeSecret); err == nil {
				t.Error("ParseNotice() expected error, got nil")
			}
		})
	}
}
