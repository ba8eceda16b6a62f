package wire

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestResponseItem_TaggedUnion(t *testing.T) {
	ok, err := NewDataItem("1", map[string]string{"name": "Ada"})
	if err != nil {
		t.Fatalf("NewDataItem: %v", err)
	}
	if ok.HasError() {
		t.Error("data item reports an error")
	}

	fail := NewErrorItem("2", NewNotFoundError("a.b"))
	if !fail.HasError() {
		t.Error("error item reports success")
	}
	if fail.Error.Code != CodeNotFound || fail.Error.Name != NameNotFound {
		t.Errorf("error = %+v", fail.Error)
	}
}

func TestParseItems(t *testing.T) {
	data := []byte(`[{"id":"1","data":{"id":"1","name":"Ada"}},{"id":"2","error":{"code":500,"name":"DomainError","message":"boom"}}]`)

	items, err := ParseItems(data)
	if err != nil {
		t.Fatalf("ParseItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].HasError() {
		t.Errorf("item 0 is an error: %v", items[0].Error)
	}
	if !items[1].HasError() || items[1].Error.Message != "boom" {
		t.Errorf("item 1 = %+v", items[1])
	}

	if _, err := ParseItems([]byte(`{"not":"an array"}`)); err == nil {
		t.Error("expected error for non-array response")
	}
}

func TestFromError(t *testing.T) {
	werr := NewError(CodeBadRequest, NameBadRequest, "bad input")
	if got := FromError(werr); got != werr {
		t.Errorf("wire error did not pass through: %+v", got)
	}

	got := FromError(errors.New("boom"))
	if got.Code != CodeInternal || got.Name != NameDomain || got.Message != "boom" {
		t.Errorf("FromError = %+v", got)
	}
}

func TestBodyItem_AbsentInput(t *testing.T) {
	data, err := MarshalBody([]BodyItem{
		{ID: "1", Input: json.RawMessage(`{"id":"1"}`)},
		{ID: "2"},
	})
	if err != nil {
		t.Fatalf("MarshalBody: %v", err)
	}

	want := `[{"id":"1","input":{"id":"1"}},{"id":"2"}]`
	if string(data) != want {
		t.Errorf("body = %s, want %s", data, want)
	}
}
