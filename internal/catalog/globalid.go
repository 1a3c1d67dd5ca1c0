package catalog

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// EncodeID returns the opaque global ID for a row: base64("<Type>:<pk>").
func EncodeID(typ string, pk int64) string {
	return base64Encode(typ + ":" + strconv.FormatInt(pk, 10))
}

// DecodeID splits a global ID into its type name and primary key.
func DecodeID(globalID string) (typ string, pk int64, err error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(globalID))
	if err != nil {
		return "", 0, fmt.Errorf("decode global id: %w", err)
	}
	typ, pkStr, ok := strings.Cut(string(raw), ":")
	if !ok || typ == "" || pkStr == "" {
		return "", 0, fmt.Errorf("decode global id: malformed payload %q", raw)
	}
	pk, err = strconv.ParseInt(pkStr, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("decode global id: %w", err)
	}
	return typ, pk, nil
}

// decodeTyped decodes globalID and checks it names a row of type want.
func decodeTyped(field, globalID, want string) (int64, *ResolveError) {
	typ, pk, err := DecodeID(globalID)
	if err != nil {
		return 0, &ResolveError{
			Field:   field,
			ID:      globalID,
			Code:    ErrCodeInvalidID,
			Message: err.Error(),
		}
	}
	if typ != want {
		return 0, &ResolveError{
			Field:   field,
			ID:      globalID,
			Code:    ErrCodeWrongType,
			Message: fmt.Sprintf("must receive a %s id, got %s", want, typ),
		}
	}
	return pk, nil
}

func base64Encode(payload string) string {
	return base64.StdEncoding.EncodeToString([]byte(payload))
}
