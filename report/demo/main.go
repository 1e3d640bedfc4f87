package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/hatlonely/harvest/cfg"
	"github.com/hatlonely/harvest/report"
)

func main() {
	path := flag.String("config", "report/demo/report.yaml", "配置文件，支持 yaml/json/toml/ini")
	farmerID := flag.String("farmer", "", "只输出该农户的订单")
	watch := flag.Bool("watch", false, "配置文件变化后重新生成报表")
	flag.Parse()

	c, err := cfg.NewConfig(*path, "HARVEST")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	req := &report.Request{FarmerID: *farmerID}
	if err := run(c.Sub("report"), req); err != nil {
		fmt.Fprintf(os.Stderr, "生成报表失败: %v\n", err)
		os.Exit(1)
	}
	if !*watch {
		return
	}

	c.Sub("report").OnChange(func(sub *cfg.Config) error {
		return run(sub, req)
	})
	if err := c.Watch(); err != nil {
		fmt.Fprintf(os.Stderr, "监听配置失败: %v\n", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
}

func run(c *cfg.Config, req *report.Request) error {
	var options report.Options
	if err := c.ConvertTo(&options); err != nil {
		return err
	}
	engine, err := report.NewEngineWithOptions(&options)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	snapshot, err := engine.Refresh(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}
