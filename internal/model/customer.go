package model

// Customer represents a row in the `customers` table. A customer owns at most
// one Account and any number of Orders. Email is unique across customers.
//
// Fields:
//  ID    – primary key identifier.
//  Name  – display name.
//  Email – unique email address.
//  Phone – contact phone number.
type Customer struct {
    ID    uint64 `json:"id"`    // customers.id
    Name  string `json:"name"`  // customers.name
    Email string `json:"email"` // customers.email
    Phone string `json:"phone"` // customers.phone
}

// Account holds the credentials of a customer. It is keyed by the customer
// id rather than a surrogate key, so a customer has at most one account.
// Only the bcrypt hash of the password is stored.
//
// Fields:
//  CustomerID   – owner of the account (customer_accounts.customer_id).
//  Username     – unique login name, at least 8 characters.
//  PasswordHash – bcrypt hash of the password.
type Account struct {
    CustomerID   uint64 `json:"customer_id"` // customer_accounts.customer_id
    Username     string `json:"username"`    // customer_accounts.username
    PasswordHash string `json:"-"`           // customer_accounts.password_hash
}

// Validation limits shared by the account service and its tests.
const (
    MinUsernameLen = 8
    MinPasswordLen = 16
)
