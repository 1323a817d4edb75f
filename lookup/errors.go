package lookup

import "errors"

// User facing messages
const (
	MsgEmptyQuery   = "Please enter a valid drug name."
	MsgNotFound     = "Drug not found. Try a generic name like Ibuprofen or Metformin."
	MsgDegraded     = "Drug found, but some details could not be retrieved."
	MsgLookupFailed = "Error fetching drug data. Please try again or check your internet connection."
)

// ErrEmptyQuery is returned for queries that are empty once normalized.
// No upstream is contacted.
var ErrEmptyQuery = errors.New("empty drug name")
