package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"paydiag/config"
	"paydiag/logger"

	drv "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options 控制 gorm 连接行为
type Options struct {
	// Verbose 打开后记录每条 SQL（debug 级别）
	Verbose bool
	// SkipVersionCheck 跳过 SELECT VERSION()，用于 sqlmock
	SkipVersionCheck bool
}

// BuildDSN 由连接描述生成 go-sql-driver DSN
func BuildDSN(c config.ConnectionConfig) string {
	mc := drv.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = c.Addr()
	mc.DBName = c.Database
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Timeout = 5 * time.Second
	mc.Params = map[string]string{"charset": "utf8mb4"}
	for k, v := range c.Params {
		mc.Params[k] = v
	}
	return mc.FormatDSN()
}

// OpenConn 在已有的 *sql.DB 上建立 gorm 连接
func OpenConn(conn *sql.DB, opts Options) (*gorm.DB, error) {
	level := gormlogger.Warn
	if opts.Verbose {
		level = gormlogger.Info
	}
	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: opts.SkipVersionCheck,
	}), &gorm.Config{
		Logger: gormlogger.New(zapWriter{}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}
	return gdb, nil
}

// Connector 每次 Acquire 建立一个独立连接，由调用方负责调用 release
type Connector struct {
	conn config.ConnectionConfig
	opts Options
}

func NewConnector(c config.ConnectionConfig, opts Options) *Connector {
	return &Connector{conn: c, opts: opts}
}

// Acquire 建立连接并 Ping，返回的 release 必须在所有退出路径上调用
func (c *Connector) Acquire(ctx context.Context) (*gorm.DB, func() error, error) {
	sqlDB, err := sql.Open("mysql", BuildDSN(c.conn))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	// 诊断工具串行执行，连接池保持最小
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to ping database %s: %w", c.conn, err)
	}

	gdb, err := OpenConn(sqlDB, c.opts)
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}

	logger.Debug("database connection acquired", logger.String("target", c.conn.String()))
	release := func() error {
		logger.Debug("database connection released", logger.String("target", c.conn.String()))
		return sqlDB.Close()
	}
	return gdb, release, nil
}

// WithSession 获取连接执行 fn，无论成功、失败还是 panic 都会释放连接
func (c *Connector) WithSession(ctx context.Context, fn func(*gorm.DB) error) (err error) {
	gdb, release, err := c.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := release(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to release database connection: %w", cerr)
		}
	}()
	return fn(gdb.WithContext(ctx))
}

// zapWriter 把 gorm 日志转给全局 logger
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...), logger.String("component", "gorm"))
}
