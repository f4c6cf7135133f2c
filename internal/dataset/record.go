package dataset

// Field is one named scalar column of a Record. Values are string, int64 or float64.
type Field struct {
	Name  string
	Value any
}

// Record is a flat dataset row whose field order is the column order.
type Record []Field

// Names returns the field names in column order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Values returns the field values in column order.
func (r Record) Values() []any {
	values := make([]any, len(r))
	for i, f := range r {
		values[i] = f.Value
	}
	return values
}

// Get returns the value stored under name.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Column names per dataset schema.
const (
	FieldUserID      = "USER_ID"
	FieldGender      = "GENDER"
	FieldLastVisitAt = "LAST_VISIT_AT"
	FieldState       = "STATE"
	FieldDateOfBirth = "DATE_OF_BIRTH"
	FieldGroupID     = "GROUP_ID"

	FieldItemID     = "ITEM_ID"
	FieldPrice      = "PRICE"
	FieldName       = "NAME"
	FieldKeys       = "KEYS"
	FieldCategories = "CATEGORIES"

	FieldTimestamp = "TIMESTAMP"
)

// EmptyValue fills product text columns that have no data.
const EmptyValue = "Empty"

// CustomerRecord builds a row of the customer (users) dataset.
func CustomerRecord(userID string, gender int64, lastVisitAt int64, state string, dob int64, groupID int64) Record {
	return Record{
		{FieldUserID, userID},
		{FieldGender, gender},
		{FieldLastVisitAt, lastVisitAt},
		{FieldState, state},
		{FieldDateOfBirth, dob},
		{FieldGroupID, groupID},
	}
}

// ProductRecord builds a row of the product (items) dataset.
func ProductRecord(itemID string, price float64, name, keys, categories string) Record {
	return Record{
		{FieldItemID, itemID},
		{FieldPrice, price},
		{FieldName, name},
		{FieldKeys, keys},
		{FieldCategories, categories},
	}
}

// InteractionRecord builds a row of the interactions dataset.
func InteractionRecord(itemID, userID string, timestamp int64) Record {
	return Record{
		{FieldItemID, itemID},
		{FieldUserID, userID},
		{FieldTimestamp, timestamp},
	}
}
