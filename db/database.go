package db

import (
	"net"

	"github.com/go-sql-driver/mysql"

	"gocddb/config"
)

// MySQLDSN formats a go-sql-driver DSN for the given server and schema.
func MySQLDSN(user, password, addr, name string) string {
	c := mysql.NewConfig()
	c.User = user
	c.Passwd = password
	c.Net = "tcp"
	c.Addr = addr
	c.DBName = name
	c.ParseTime = true
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

// DSNFromConfig builds the MySQL DSN of the configured catalog database.
func DSNFromConfig(cfg *config.Config) string {
	return MySQLDSN(cfg.DBUser, cfg.DBPassword, net.JoinHostPort(cfg.DBHost, cfg.DBPort), cfg.DBName)
}
