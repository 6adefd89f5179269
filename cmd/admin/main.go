package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"resumeBuilder/internal/completion"
	"resumeBuilder/internal/config"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/gateway"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/store"
)

func main() {
	var (
		owner      = flag.String("owner", "", "简历所属用户 ID（必填）")
		resumeID   = flag.String("resume", "", "导出指定简历；为空时列出该用户的全部简历")
		format     = flag.String("format", "markdown", "导出格式：json、text 或 markdown")
		out        = flag.String("out", "", "导出文件路径（可选，默认输出到标准输出）")
		collection = flag.String("collection", "", "集合路径模板（可选，默认读 STORE_COLLECTION）")
		driver     = flag.String("db-driver", "", "数据库驱动 postgres 或 sqlite（可选，默认读 DATABASE_DRIVER）")
		sqlitePath = flag.String("sqlite-path", "", "SQLite 文件路径（可选，默认读 SQLITE_PATH）")
		dbHost     = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort     = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName     = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser     = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass     = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode    = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	o := strings.TrimSpace(*owner)
	if o == "" {
		log.Fatal("missing required flag: --owner")
	}

	dbCfg, err := loadDatabaseConfig(*driver, *sqlitePath, *dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	storeCfg := config.StoreConfig{Collection: firstNonEmpty(*collection, os.Getenv("STORE_COLLECTION"), "users/{owner}/resumes")}
	registry := store.NewRegistry(gateway.NewGormGateway(db), store.RegistryConfig{
		CollectionFor: storeCfg.CollectionFor,
	})
	sess := registry.For(o)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if id := strings.TrimSpace(*resumeID); id != "" {
		if err := exportResume(ctx, sess, id, *format, *out); err != nil {
			log.Fatalf("export resume: %v", err)
		}
		return
	}
	if err := listResumes(ctx, sess); err != nil {
		log.Fatalf("list resumes: %v", err)
	}
}

func listResumes(ctx context.Context, sess *store.Session) error {
	if err := sess.List.Load(ctx); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\t标题\t完成度\t收藏\t最后更新")
	for _, item := range sess.List.Items() {
		doc, err := sess.Store.Get(ctx, item.ID)
		if err != nil {
			return err
		}
		fav := ""
		if item.Favorite {
			fav = "★"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d%%\t%s\t%s\n",
			item.ID,
			item.Title,
			completion.Evaluate(doc).OverallPercent,
			fav,
			item.LastUpdated.Format(time.DateTime),
		)
	}
	return tw.Flush()
}

func exportResume(ctx context.Context, sess *store.Session, id, formatName, outPath string) error {
	f, err := resume.ParseFormat(formatName)
	if err != nil {
		return err
	}
	doc, err := sess.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	data, err := resume.Export(doc, f)
	if err != nil {
		return err
	}

	if outPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	fmt.Printf("已导出简历 %s 到 %s\n", id, outPath)
	return nil
}

func loadDatabaseConfig(driver, sqlitePath, host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	driver = firstNonEmpty(driver, os.Getenv("DATABASE_DRIVER"), config.DriverPostgres)
	if driver == config.DriverSQLite {
		return config.DatabaseConfig{
			Driver:     driver,
			SQLitePath: firstNonEmpty(sqlitePath, os.Getenv("SQLITE_PATH"), "resumes.db"),
		}, nil
	}

	host = firstNonEmpty(host, os.Getenv("DATABASE_HOST"), "localhost")
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if port <= 0 {
		port = 5432
	}
	name = firstNonEmpty(name, os.Getenv("POSTGRES_DB"), os.Getenv("DB_NAME"))
	user = firstNonEmpty(user, os.Getenv("POSTGRES_USER"), os.Getenv("DB_USER"))
	password = firstNonEmpty(password, os.Getenv("POSTGRES_PASSWORD"), os.Getenv("DB_PASSWORD"))
	sslmode = firstNonEmpty(sslmode, os.Getenv("DATABASE_SSLMODE"), "disable")

	if name == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if user == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if password == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Driver:   driver,
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
