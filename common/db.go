package common

import (
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"lotto-server/common/logger"
)

// InitDB 初始化master db
func InitDB(dsn string, maxIdleConn, maxOpenConn, connMaxLifetimeSec int) *sql.DB {

	db, err := sql.Open("mysql", dsn+"&parseTime=true&loc=Local")
	if err != nil {
		logger.Fatalf("InitDB sql.Open", zap.Error(err))
	}

	// 连接池参数
	db.SetMaxOpenConns(maxOpenConn)
	db.SetMaxIdleConns(maxIdleConn)
	if connMaxLifetimeSec <= 0 {
		connMaxLifetimeSec = 120
	}
	db.SetConnMaxLifetime(time.Duration(connMaxLifetimeSec) * time.Second)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// 会话级超时，降低锁等待时长
	if _, err := db.Exec("SET SESSION innodb_lock_wait_timeout = ?", 5); err != nil {
		logger.Warn("SET innodb_lock_wait_timeout failed", zap.Error(err))
	}

	if err := db.Ping(); err != nil {
		logger.Fatalf("InitDB failed:", zap.Error(err))
	}

	return db
}
