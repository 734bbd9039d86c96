package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"bookclub/internal/services"
	"bookclub/internal/storage"
)

// dbOpener connects to the database named by a config file path.
type dbOpener func(configPath string) (*gorm.DB, error)

func newRootCmd(open dbOpener) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Operator commands for the book club database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config/config.yaml)")

	withDB := func(run func(ctx context.Context, db *gorm.DB, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			db, err := open(configPath)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("获取数据库连接失败: %w", err)
			}
			defer sqlDB.Close()
			return run(cmd.Context(), db, cmd.OutOrStdout(), args)
		}
	}

	showGroup := &cobra.Command{
		Use:   "show-group <name>",
		Short: "Print a group with its members, comment count and book links",
		Args:  cobra.ExactArgs(1),
		RunE:  withDB(runShowGroup),
	}

	var fix bool
	auditOrphans := &cobra.Command{
		Use:   "audit-orphans",
		Short: "List comments whose group or parent no longer exists",
		Args:  cobra.NoArgs,
		RunE: withDB(func(ctx context.Context, db *gorm.DB, out io.Writer, _ []string) error {
			return runAuditOrphans(ctx, db, out, fix)
		}),
	}
	auditOrphans.Flags().BoolVar(&fix, "fix", false, "delete comments of missing groups and turn comments with a missing parent into root comments")

	resume := &cobra.Command{
		Use:   "resume-group-deletion <name>",
		Short: "Finish a group deletion that stopped with a partial cleanup",
		Args:  cobra.ExactArgs(1),
		RunE:  withDB(runResumeGroupDeletion),
	}

	root.AddCommand(showGroup, auditOrphans, resume)
	return root
}

func runShowGroup(ctx context.Context, db *gorm.DB, out io.Writer, args []string) error {
	groupRepo := storage.NewGormGroupRepository(db)
	group, err := groupRepo.GetGroupByName(ctx, args[0])
	if err != nil {
		return fmt.Errorf("获取群组 %q 失败: %w", args[0], err)
	}
	members, err := groupRepo.GetGroupMembers(ctx, group.ID, 0, 0)
	if err != nil {
		return fmt.Errorf("获取群组成员失败: %w", err)
	}
	comments, err := storage.NewGormCommentRepository(db).ListByGroup(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("获取群组评论失败: %w", err)
	}
	links, err := storage.NewGormBookRepository(db).CountGroupLinks(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("统计书籍关联失败: %w", err)
	}

	fmt.Fprintf(out, "群组: ID=%d 名称=%s 管理员=%d 成员数=%d\n", group.ID, group.Name, group.AdminID, group.MemberCount)
	for _, m := range members {
		fmt.Fprintf(out, "  成员: 用户=%d 角色=%s 加入于=%s\n", m.UserID, m.Role, m.JoinedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(out, "评论: %d  书籍关联: %d\n", len(comments), links)
	return nil
}

func runAuditOrphans(ctx context.Context, db *gorm.DB, out io.Writer, fix bool) error {
	commentRepo := storage.NewGormCommentRepository(db)
	dangling, err := commentRepo.FindDangling(ctx)
	if err != nil {
		return fmt.Errorf("查找悬挂评论失败: %w", err)
	}
	if len(dangling) == 0 {
		fmt.Fprintln(out, "没有悬挂的评论")
		return nil
	}

	for _, c := range dangling {
		parent := "-"
		if c.ParentID != nil {
			parent = fmt.Sprint(*c.ParentID)
		}
		fmt.Fprintf(out, "评论 %d: 群组=%d 父评论=%s 作者=%d\n", c.ID, c.GroupID, parent, c.AuthorID)
	}
	fmt.Fprintf(out, "共 %d 条悬挂评论\n", len(dangling))

	if !fix {
		return nil
	}
	deleted, detached, err := commentRepo.RepairDangling(ctx)
	if err != nil {
		return fmt.Errorf("修复悬挂评论失败: %w", err)
	}
	fmt.Fprintf(out, "已删除 %d 条群组不存在的评论，%d 条评论改为根评论\n", deleted, detached)
	return nil
}

func runResumeGroupDeletion(ctx context.Context, db *gorm.DB, out io.Writer, args []string) error {
	groupRepo := storage.NewGormGroupRepository(db)
	groups := services.NewGroupService(db, groupRepo, services.NewNopEventPublisher())
	comments := services.NewCommentService(storage.NewGormCommentRepository(db), groupRepo)
	books := services.NewBookService(storage.NewGormBookRepository(db), groups, nil)
	cascade := services.NewCascadeService(groups, comments, books, storage.NewGormUserRepository(db))

	if err := cascade.ResumeGroupDeletion(ctx, args[0]); err != nil {
		return fmt.Errorf("继续删除群组 %q 失败: %w", args[0], err)
	}
	fmt.Fprintf(out, "群组 %q 已删除\n", args[0])
	return nil
}
