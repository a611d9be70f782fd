package sqltwoway

// Driver registration for the four supported dialects. Importing package
// sqltwoway is enough to Open a connection against any of them; the driver
// name passed to Open doubles as the dialect detection key.
import (
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/godror/godror"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)
