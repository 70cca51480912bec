package repository

import (
    "database/sql"
    "errors"
    "fmt"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/storefront-orders/internal/store"
)

// MySQL server error numbers translated into store sentinels.
const (
    errDupEntry        = 1062 // ER_DUP_ENTRY: unique email/username, second account
    errRowIsReferenced = 1451 // ER_ROW_IS_REFERENCED_2: customer still owns orders
    errNoReferencedRow = 1452 // ER_NO_REFERENCED_ROW_2: parent row missing
)

// mapErr translates driver errors into store.ErrNotFound and
// store.ErrConflict. Other errors are returned unchanged.
func mapErr(err error) error {
    if err == nil {
        return nil
    }
    if errors.Is(err, sql.ErrNoRows) {
        return store.ErrNotFound
    }
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        switch me.Number {
        case errDupEntry, errRowIsReferenced:
            return fmt.Errorf("%w: %s", store.ErrConflict, me.Message)
        case errNoReferencedRow:
            return fmt.Errorf("%w: %s", store.ErrNotFound, me.Message)
        }
    }
    return err
}
