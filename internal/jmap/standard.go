package jmap

// Argument and response shapes of the standard methods (RFC 8620 section 5).
// Argument types use value receivers so WithAccount returns a copy.

// GetArgs are the arguments of a /get call. A nil IDs is sent as null and
// asks for every object; an empty IDs is sent as [] and asks for none.
type GetArgs struct {
	AccountID  string   `json:"accountId"`
	IDs        []string `json:"ids"`
	Properties []string `json:"properties,omitempty"`
}

func (a GetArgs) Account() string { return a.AccountID }

func (a GetArgs) WithAccount(id string) GetArgs {
	a.AccountID = id
	return a
}

// GetResponse is the result of a /get call.
type GetResponse[T any] struct {
	AccountID string   `json:"accountId"`
	State     string   `json:"state"`
	List      []T      `json:"list"`
	NotFound  []string `json:"notFound"`
}

// ChangesArgs are the arguments of a /changes call.
type ChangesArgs struct {
	AccountID  string `json:"accountId"`
	SinceState string `json:"sinceState"`
	MaxChanges *int   `json:"maxChanges,omitempty"`
}

func (a ChangesArgs) Account() string { return a.AccountID }

func (a ChangesArgs) WithAccount(id string) ChangesArgs {
	a.AccountID = id
	return a
}

// ChangesResponse is the result of a /changes call.
type ChangesResponse struct {
	AccountID      string   `json:"accountId"`
	OldState       string   `json:"oldState"`
	NewState       string   `json:"newState"`
	HasMoreChanges bool     `json:"hasMoreChanges"`
	Created        []string `json:"created"`
	Updated        []string `json:"updated"`
	Destroyed      []string `json:"destroyed"`

	// UpdatedProperties is only sent by Mailbox/changes.
	UpdatedProperties []string `json:"updatedProperties,omitempty"`
}

// PatchObject maps JSON pointer paths to new values for an /set update.
type PatchObject map[string]any

// SetArgs are the arguments of a /set call.
type SetArgs[T any] struct {
	AccountID string                 `json:"accountId"`
	IfInState string                 `json:"ifInState,omitempty"`
	Create    map[string]T           `json:"create,omitempty"`
	Update    map[string]PatchObject `json:"update,omitempty"`
	Destroy   []string               `json:"destroy,omitempty"`

	// OnDestroyRemoveEmails is only understood by Mailbox/set.
	OnDestroyRemoveEmails bool `json:"onDestroyRemoveEmails,omitempty"`
}

func (a SetArgs[T]) Account() string { return a.AccountID }

func (a SetArgs[T]) WithAccount(id string) SetArgs[T] {
	a.AccountID = id
	return a
}

// SetError explains why a create, update or destroy was rejected.
type SetError struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Properties  []string `json:"properties,omitempty"`
}

// SetResponse is the result of a /set call.
type SetResponse[T any] struct {
	AccountID    string              `json:"accountId"`
	OldState     string              `json:"oldState,omitempty"`
	NewState     string              `json:"newState"`
	Created      map[string]T        `json:"created,omitempty"`
	Updated      map[string]*T       `json:"updated,omitempty"`
	Destroyed    []string            `json:"destroyed,omitempty"`
	NotCreated   map[string]SetError `json:"notCreated,omitempty"`
	NotUpdated   map[string]SetError `json:"notUpdated,omitempty"`
	NotDestroyed map[string]SetError `json:"notDestroyed,omitempty"`
}

// Comparator is one sort criterion of a /query call.
type Comparator struct {
	Property    string `json:"property"`
	IsAscending bool   `json:"isAscending"`
	Collation   string `json:"collation,omitempty"`
}

// QueryArgs are the arguments of a /query call. Filter is either a
// FilterCondition object or a FilterOperator and is sent as given.
type QueryArgs struct {
	AccountID      string       `json:"accountId"`
	Filter         any          `json:"filter,omitempty"`
	Sort           []Comparator `json:"sort,omitempty"`
	Position       int          `json:"position,omitempty"`
	Anchor         string       `json:"anchor,omitempty"`
	AnchorOffset   int          `json:"anchorOffset,omitempty"`
	Limit          *int         `json:"limit,omitempty"`
	CalculateTotal bool         `json:"calculateTotal,omitempty"`

	// CollapseThreads is only understood by Email/query.
	CollapseThreads bool `json:"collapseThreads,omitempty"`
}

func (a QueryArgs) Account() string { return a.AccountID }

func (a QueryArgs) WithAccount(id string) QueryArgs {
	a.AccountID = id
	return a
}

// QueryResponse is the result of a /query call.
type QueryResponse struct {
	AccountID           string   `json:"accountId"`
	QueryState          string   `json:"queryState"`
	CanCalculateChanges bool     `json:"canCalculateChanges"`
	Position            int      `json:"position"`
	IDs                 []string `json:"ids"`
	Total               *int     `json:"total,omitempty"`
	Limit               *int     `json:"limit,omitempty"`
}

// FilterOperator combines filter conditions.
type FilterOperator struct {
	Operator   string `json:"operator"` // AND, OR or NOT
	Conditions []any  `json:"conditions"`
}
