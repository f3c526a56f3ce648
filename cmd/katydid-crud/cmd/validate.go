package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"katydid-common-crud/pkg/validator"
	"katydid-common-crud/pkg/validator/formatter"
)

var (
	validateResource string
	validateScene    string
)

var validateCmd = &cobra.Command{
	Use:   "validate <envelope.json>",
	Short: "离线校验一个请求",
	Long: `按资源与场景校验一个请求包络，通过时打印规范化结果，失败时打印错误并返回非零状态。

包络文件格式：
  {"query": {"limit": "5"}, "body": {...}, "params": {"id": "..."}}

示例：
  katydid-crud validate --resource area --scene list request.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateResource, "resource", "r", "", "资源名")
	validateCmd.Flags().StringVarP(&validateScene, "scene", "s", "list", "场景：list/get/create/update/delete")
	_ = validateCmd.MarkFlagRequired("resource")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	scene, err := sceneFlag(validateScene)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read envelope: %w", err)
	}
	var env validator.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode envelope %s: %w", args[0], err)
	}

	registry, err := loadRegistry(cfg, nil)
	if err != nil {
		return err
	}
	schemas, ok := registry.Schemas(validateResource, scene)
	if !ok {
		return fmt.Errorf("unknown resource %q", validateResource)
	}

	out := cmd.OutOrStdout()
	sanitized, errs := validator.New().ValidateRequest(schemas, env)
	if len(errs) > 0 {
		f := formatter.NewI18nFormatter(cfg.Validator.Locale)
		for _, fe := range errs {
			fmt.Fprintln(out, f.Format(fe))
		}
		return fmt.Errorf("%d validation error(s)", len(errs))
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(sanitized)
}
