package sync

import (
	"strings"
	"time"

	"bondaccess.org/internal/bond"
	"bondaccess.org/internal/directory"
)

// MapEntity normalizes a remote entity record. Absent fields default to
// their zero values; a partial record is still a valid record.
func MapEntity(rec directory.Record) bond.Entity {
	f := rec.Fields
	e := bond.Entity{
		ExternalID:  rec.ID,
		LegalName:   stringField(f, "Legal Name"),
		FirstName:   stringField(f, "First Name"),
		LastName:    stringField(f, "Last Name"),
		Email:       stringField(f, "Email"),
		Type:        stringField(f, "Type"),
		Status:      stringField(f, "Status"),
		PhoneDirect: stringField(f, "Phone-Direct"),
	}
	e.EmailSearch = strings.ToLower(strings.TrimSpace(e.Email))
	return e
}

// MapActivity normalizes a remote activity record. The requestor linkage
// falls back to the id the query filtered on when the linked field is absent.
func MapActivity(rec directory.Record, requestorID string) bond.Activity {
	f := rec.Fields
	a := bond.Activity{
		ExternalID:      rec.ID,
		RequestorID:     linkField(f, "Requestor"),
		Description:     stringField(f, "Description"),
		PrincipalName:   stringField(f, "Principal Name"),
		ObligeeName:     stringField(f, "Obligee Name"),
		JobName:         stringField(f, "Job Name"),
		Type:            stringField(f, "Type"),
		Status:          stringField(f, "Status"),
		Amount:          numberField(f, "Amount"),
		Premium:         numberField(f, "Premium"),
		EffectiveDate:   dateField(f, "Effective Date"),
		TransactionDate: dateField(f, "Transaction Date"),
	}
	if a.RequestorID == "" {
		a.RequestorID = requestorID
	}
	return a
}

// MapAccessRequest normalizes a remote access-request record around the
// issued-on date. Expiry defaults to issued plus three months when the
// remote base does not specify one; a request with no Active field counts
// as active.
func MapAccessRequest(rec directory.Record, issued time.Time) bond.AccessRequest {
	f := rec.Fields
	ar := bond.AccessRequest{
		ExternalID:  rec.ID,
		RequestorID: linkField(f, "Requestor"),
		Email:       stringField(f, "Req Email"),
		RequestedOn: dateField(f, "Requested On"),
		ExpiresOn:   dateField(f, "Expires On"),
		Active:      true,
	}
	if _, ok := f["Active"]; ok {
		ar.Active = boolField(f, "Active")
	}
	if ar.RequestedOn.IsZero() {
		ar.RequestedOn = issued
	}
	if ar.ExpiresOn.IsZero() {
		ar.ExpiresOn = ar.RequestedOn.AddDate(0, 3, 0)
	}
	return ar
}

// MapDocGen normalizes a remote generated-document record.
func MapDocGen(rec directory.Record) bond.DocGen {
	f := rec.Fields
	return bond.DocGen{
		ExternalID:  rec.ID,
		Name:        stringField(f, "Name"),
		Notes:       stringField(f, "Notes"),
		ActivityID:  linkField(f, "Activity"),
		RunDate:     dateField(f, "Run Date"),
		Templates:   stringField(f, "Templates"),
		CreatedTime: dateField(f, "Created Time"),
	}
}

// --- field helpers: every accessor totalizes over the loose remote shape ---

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func numberField(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func boolField(fields map[string]any, key string) bool {
	switch v := fields[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return false
	}
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

func dateField(fields map[string]any, key string) time.Time {
	raw, ok := fields[key].(string)
	if !ok || raw == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// linkField returns the first element of a linked-record array.
func linkField(fields map[string]any, key string) string {
	arr, ok := fields[key].([]any)
	if !ok || len(arr) == 0 {
		return ""
	}
	if s, ok := arr[0].(string); ok {
		return s
	}
	return ""
}
