package message

import (
	"errors"
	"strings"
	"testing"
)

func TestNewCall(t *testing.T) {
	h := NewCall(7, 0x20000101, 1, 13)

	if h.MsgType != uint32(MsgTypeCall) {
		t.Fatalf("expect CALL message type, got %d", h.MsgType)
	}
	if h.RPCVers != RPCVersion {
		t.Fatalf("expect rpcvers %d, got %d", RPCVersion, h.RPCVers)
	}
	if h.Cred.Flavor != AuthNone || h.Verf.Flavor != AuthNone {
		t.Fatalf("expect AUTH_NONE credentials, got %d/%d", h.Cred.Flavor, h.Verf.Flavor)
	}
}

func TestReplyErrSuccess(t *testing.T) {
	r := NewSuccess(1, []byte{0, 0, 0, 1})
	if err := r.Err(); err != nil {
		t.Fatalf("expect nil error for SUCCESS, got %v", err)
	}
}

func TestReplyErrAccepted(t *testing.T) {
	r := NewAccepted(1, ProgMismatch)
	r.Mismatch = MismatchInfo{Low: 1, High: 3}

	err := r.Err()
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expect *RPCError, got %T", err)
	}
	if rpcErr.AcceptStat != ProgMismatch {
		t.Fatalf("expect PROG_MISMATCH, got %s", rpcErr.AcceptStat)
	}
	if !strings.Contains(err.Error(), "1-3") {
		t.Errorf("error should report supported range, got %q", err.Error())
	}
}

func TestReplyErrDenied(t *testing.T) {
	r := NewDenied(1, AuthError)
	r.AuthStat = 1

	err := r.Err()
	if err == nil {
		t.Fatal("expect error for denied reply")
	}
	if !strings.Contains(err.Error(), "AUTH_ERROR") {
		t.Errorf("error should name the reject status, got %q", err.Error())
	}
}

func TestAcceptStatString(t *testing.T) {
	if SystemErr.String() != "SYSTEM_ERR" {
		t.Errorf("got %s", SystemErr.String())
	}
	if AcceptStat(99).String() != "UNKNOWN_ACCEPT_STAT" {
		t.Errorf("got %s", AcceptStat(99).String())
	}
}
