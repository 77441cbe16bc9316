// Package config provides configuration management for botctl.
//
// Configuration is loaded from YAML files and merged in the following order,
// later sources overriding earlier ones:
//
//  1. Default Configuration (built into the binary)
//  2. User Configuration (~/.config/botctl/config.yaml)
//  3. Project Configuration (./.botctl/config.yaml)
//
// A single file can be loaded on top of the defaults with LoadConfigFromPath
// (the --config flag).
//
// # Configuration Structure
//
//	installDir: /opt/ai-sysadmin-bot
//	runtime:
//	  python: python3
//	  venvDir: venv
//	  requirementsFile: requirements.txt
//	secrets:
//	  file: .env
//	  keys:
//	    - name: TELEGRAM_BOT_TOKEN
//	      sensitive: true
//	    - name: GEMINI_API_KEY
//	      sensitive: true
//	launcher:
//	  script: start.sh
//	  entryPoint: src/telegram_bot.py
//	service:
//	  name: ai-sysadmin-bot
//	  restartSec: 10
//	  sudo: auto        # auto | always | never
//	  settleDelay: 2s
//
// Relative paths in runtime, secrets and launcher are resolved against the
// install directory. Lists (packages, secret keys) replace the lower layer;
// prerequisites are merged by name.
package config
