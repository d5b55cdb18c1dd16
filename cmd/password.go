package cmd

import (
	"errors"

	"paydiag/core/check"
	"paydiag/logger"

	"github.com/spf13/cobra"
)

var (
	resetUsername string
	resetEmail    string
	resetPassword string
	resetForce    bool
)

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "重置用户密码",
	Long: `按用户名或邮箱定位用户，写入新的 bcrypt 哈希并回读校验。
用户不存在时不做任何修改。NODE_ENV=production 时需要 --force。`,
	Example: `  paydiag reset-password --username admin --password <新密码>
  paydiag reset-password --email ops@example.invalid --password <新密码> --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := guardWrites(resetForce); err != nil {
			return err
		}
		if resetPassword == "" {
			return errors.New("--password is required")
		}
		if (resetUsername == "") == (resetEmail == "") {
			return errors.New("exactly one of --username or --email is required")
		}

		params := check.Params{"password": resetPassword}
		if resetUsername != "" {
			params["username"] = resetUsername
		} else {
			params["email"] = resetEmail
		}

		runner, err := newRunner(true)
		if err != nil {
			return err
		}
		logger.Info("resetting password", logger.String("username", resetUsername), logger.String("email", resetEmail))
		return runWriteCheck(cmd, runner, "reset-password", params)
	},
}

func init() {
	resetPasswordCmd.Flags().StringVarP(&resetUsername, "username", "u", "", "用户名")
	resetPasswordCmd.Flags().StringVarP(&resetEmail, "email", "e", "", "邮箱")
	resetPasswordCmd.Flags().StringVar(&resetPassword, "password", "", "新密码 (必填)")
	resetPasswordCmd.Flags().BoolVar(&resetForce, "force", false, "允许在生产环境执行")
	rootCmd.AddCommand(resetPasswordCmd)
}
