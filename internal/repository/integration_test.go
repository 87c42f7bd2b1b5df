//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stargate/backend/internal/model"
	"stargate/backend/internal/repository"
	"stargate/backend/pkg/database"
	pkgerrors "stargate/backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var pgDB *gorm.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("stargate_test"),
		tcpostgres.WithUsername("stargate"),
		tcpostgres.WithPassword("stargate"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "启动 PostgreSQL 容器失败: %v\n", err)
		os.Exit(1)
	}

	code := run(m, ctx, container)
	_ = testcontainers.TerminateContainer(container)
	os.Exit(code)
}

func run(m *testing.M, ctx context.Context, container *tcpostgres.PostgresContainer) int {
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取连接串失败: %v\n", err)
		return 1
	}

	pgDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		return 1
	}

	sqlDB, err := pgDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		return 1
	}
	// 使用与生产一致的 SQL 迁移而不是 AutoMigrate
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "执行迁移失败: %v\n", err)
		return 1
	}

	return m.Run()
}

func seedPG(t *testing.T, name string) *model.Person {
	t.Helper()
	p := &model.Person{Name: fmt.Sprintf("%s-%d", name, time.Now().UnixNano())}
	if err := pgDB.Create(p).Error; err != nil {
		t.Fatalf("创建人员失败: %v", err)
	}
	t.Cleanup(func() {
		pgDB.Where("person_id = ?", p.PersonID).Delete(&model.CareerSummary{})
		pgDB.Where("person_id = ?", p.PersonID).Delete(&model.Duty{})
		pgDB.Where("person_id = ?", p.PersonID).Delete(&model.Person{})
	})
	return p
}

// ═══════════════════════════════════════════════════════════
// Test: Migrations
// ═══════════════════════════════════════════════════════════

func TestMigrations_Version(t *testing.T) {
	sqlDB, _ := pgDB.DB()
	version, dirty, err := database.MigrationVersion(sqlDB)
	if err != nil {
		t.Fatalf("查询迁移版本失败: %v", err)
	}
	if dirty || version != 1 {
		t.Errorf("期望 version=1 且非 dirty，得到 version=%d dirty=%v", version, dirty)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Unique Constraint (one open duty per person)
// ═══════════════════════════════════════════════════════════

func TestUniqueOpenDutyPerPerson(t *testing.T) {
	p := seedPG(t, "Ada")
	repo := repository.NewRepository(pgDB)
	ctx := context.Background()

	first := &model.Duty{PersonID: p.PersonID, Rank: "Captain", DutyTitle: "Pilot",
		Outcome: model.DutyOutcomeRegular, DutyStartDate: date("2020-01-01")}
	if err := repo.Duty.Create(ctx, first); err != nil {
		t.Fatalf("创建第一条值勤失败: %v", err)
	}

	second := &model.Duty{PersonID: p.PersonID, Rank: "Captain", DutyTitle: "Commander",
		Outcome: model.DutyOutcomeRegular, DutyStartDate: date("2021-06-01")}
	err := repo.Duty.Create(ctx, second)
	if err == nil {
		t.Fatal("期望唯一约束违反，但创建成功了。确认迁移已创建 ux_duties_open_per_person 索引")
	}
	if err != gorm.ErrDuplicatedKey {
		t.Errorf("期望 gorm.ErrDuplicatedKey，得到: %v", err)
	}
}

func TestEndBeforeStartRejectedByCheck(t *testing.T) {
	p := seedPG(t, "Grace")
	end := date("2019-12-31")
	err := repository.NewRepository(pgDB).Duty.Create(context.Background(), &model.Duty{
		PersonID: p.PersonID, Rank: "Lt", DutyTitle: "Cadet", Outcome: model.DutyOutcomeRegular,
		DutyStartDate: date("2020-01-01"), DutyEndDate: &end,
	})
	if err == nil {
		t.Fatal("期望 CHECK 约束拒绝结束早于开始的记录")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Row lock + Optimistic lock
// ═══════════════════════════════════════════════════════════

func TestRowLock_SerializesWriters(t *testing.T) {
	p := seedPG(t, "Linus")
	repo := repository.NewRepository(pgDB)
	ctx := context.Background()

	tx1, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	if _, err := repo.WithTx(tx1).Person.GetByIDForUpdate(ctx, p.PersonID); err != nil {
		tx1.Rollback()
		t.Fatalf("加锁失败: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		tx2, err := repo.BeginTx(ctx)
		if err != nil {
			return
		}
		defer tx2.Rollback()
		if _, err := repo.WithTx(tx2).Person.GetByIDForUpdate(ctx, p.PersonID); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		tx1.Rollback()
		t.Fatal("第二个事务不应在第一个事务持锁期间获得行锁")
	case <-time.After(300 * time.Millisecond):
	}

	tx1.Rollback()
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("第一个事务释放后第二个事务应获得行锁")
	}
}

func TestOptimisticLock_UpdateEndDate(t *testing.T) {
	p := seedPG(t, "Margaret")
	repo := repository.NewRepository(pgDB)
	ctx := context.Background()

	duty := &model.Duty{PersonID: p.PersonID, Rank: "Captain", DutyTitle: "Pilot",
		Outcome: model.DutyOutcomeRegular, DutyStartDate: date("2020-01-01"), VersionedModel: model.VersionedModel{Version: 1}}
	if err := repo.Duty.Create(ctx, duty); err != nil {
		t.Fatalf("创建值勤失败: %v", err)
	}

	// 模拟并发：两个写入方持有同一版本
	if err := repo.Duty.UpdateEndDate(ctx, duty.DutyID, 1, date("2021-05-31"), "op-a"); err != nil {
		t.Fatalf("第一次关闭应成功: %v", err)
	}
	err := repo.Duty.UpdateEndDate(ctx, duty.DutyID, 1, date("2021-06-30"), "op-b")
	if err != pkgerrors.ErrOptimisticLock {
		t.Errorf("期望 ErrOptimisticLock，得到: %v", err)
	}
}
