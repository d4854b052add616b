package i18n

var translations = map[string]map[string]string{
	English: {
		"nav.home":     "Home",
		"nav.projects": "Projects",
		"site.role":    "AI Product Engineer",
		"site.slogan":  "Turning wild ideas into reality using AI Agents",

		"project.title":  "Project",
		"project.back":   "Back to home",
		"error.title":    "Something went wrong",
		"error.notFound": "Page not found",
		"error.expired":  "This comment section has expired. Please reload the page.",
		"error.reload":   "Reload",

		"comments.title":       "Comments",
		"comments.placeholder": "What are your thoughts?",
		"comments.nickname":    "Nickname",
		"comments.email":       "Email",
		"comments.phone":       "Phone",
		"comments.send":        "Send",
		"comments.reply":       "Reply",
		"comments.delete":      "Delete Comment",
		"comments.noComments":  "No comments yet",
		"comments.loadMore":    "Load more",
		"comments.sending":     "Sending...",
		"comments.loading":     "Loading comments...",
		"comments.admin":       "Admin",
		"comments.adminLogin":  "Admin Login",
		"comments.adminLogout": "Logout",
		"comments.password":    "Password",
		"comments.login":       "Login",
		"comments.cancel":      "Cancel",
		"comments.hidden":      "This comment has been deleted.",
		"comments.confirm":     "Delete this comment?",
		"comments.replyTo":     "Reply to",

		"form.nickname": "Please enter a nickname (up to 50 characters)",
		"form.email":    "Please enter your email",
		"form.phone":    "Phone number must be 11 digits",
		"form.content":  "Please enter a comment of at most 500 characters",

		"toast.posted":           "Comment posted",
		"toast.postFailed":       "Failed to post comment, please try again",
		"toast.deleted":          "Comment deleted",
		"toast.deleteFailed":     "Failed to delete comment",
		"toast.forbidden":        "You can only delete your own comments",
		"toast.invalid":          "Please check the highlighted fields",
		"toast.adminOK":          "Admin verified successfully",
		"toast.adminFailed":      "Authentication failed",
		"toast.adminLoggedOut":   "Admin logged out successfully",
		"toast.invalidPassword":  "Invalid password",
		"toast.reservedNickname": "This nickname is reserved for the site admin",
		"toast.replyMissing":     "The comment you replied to is no longer available",
	},
	Chinese: {
		"nav.home":     "首页",
		"nav.projects": "项目",
		"site.role":    "AI 产品工程师",
		"site.slogan":  "用 AI Agents 将狂野的想法变为现实",

		"project.title":  "项目",
		"project.back":   "返回首页",
		"error.title":    "出错了",
		"error.notFound": "页面不存在",
		"error.expired":  "评论区已过期，请刷新页面。",
		"error.reload":   "刷新",

		"comments.title":       "留言板",
		"comments.placeholder": "写下您的想法...",
		"comments.nickname":    "昵称",
		"comments.email":       "邮箱",
		"comments.phone":       "手机号",
		"comments.send":        "发送",
		"comments.reply":       "回复",
		"comments.delete":      "删除评论",
		"comments.noComments":  "暂无评论，快来抢沙发吧",
		"comments.loadMore":    "加载更多",
		"comments.sending":     "发送中...",
		"comments.loading":     "评论加载中...",
		"comments.admin":       "管理员",
		"comments.adminLogin":  "管理员登录",
		"comments.adminLogout": "退出",
		"comments.password":    "密码",
		"comments.login":       "登录",
		"comments.cancel":      "取消",
		"comments.hidden":      "该评论已删除。",
		"comments.confirm":     "确定删除这条评论吗？",
		"comments.replyTo":     "回复",

		"form.nickname": "请填写昵称（不超过 50 字）",
		"form.email":    "请填写邮箱",
		"form.phone":    "手机号须为 11 位数字",
		"form.content":  "请填写评论内容，不超过 500 字",

		"toast.posted":           "评论发表成功",
		"toast.postFailed":       "评论发表失败，请重试",
		"toast.deleted":          "评论已删除",
		"toast.deleteFailed":     "删除失败",
		"toast.forbidden":        "只能删除自己的评论",
		"toast.invalid":          "请检查标红的字段",
		"toast.adminOK":          "管理员验证成功",
		"toast.adminFailed":      "验证失败",
		"toast.adminLoggedOut":   "管理员已退出",
		"toast.invalidPassword":  "密码错误",
		"toast.reservedNickname": "该昵称为管理员专用",
		"toast.replyMissing":     "回复的评论已不存在",
	},
}
